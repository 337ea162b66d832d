package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libradesk/library-service/internal/errs"
	"github.com/libradesk/library-service/internal/model"
	"github.com/libradesk/library-service/pkg/auth"
	mw "github.com/libradesk/library-service/pkg/middleware"
	"github.com/libradesk/library-service/pkg/validate"
)

type Handler struct {
	librarySvc LibraryService
	log        *zap.Logger
}

func New(librarySrv LibraryService, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySrv,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig()),
		middleware.RequestID(),
		mw.NewRateLimiter(apiRPS),
	)

	api.POST("/login", h.Login)
	api.POST("/register", h.Register)

	api.GET("/books", h.SearchBooks)
	api.GET("/books/:bookId/nearest-return", h.NearestReturn)

	admin := api.Group("", mw.JwtAuthentication)
	admin.POST("/books", h.AddBook)
	admin.POST("/books/import", h.ImportBooks)
	admin.POST("/cards", h.AddCard)
	admin.DELETE("/cards/:cardId", h.RemoveCard)
	admin.GET("/cards/:cardId/borrows", h.ListBorrows)
	admin.POST("/borrows", h.BorrowBook)
	admin.POST("/borrows/return", h.ReturnBook)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps the error taxonomy onto status codes; the message text is
// what the shell shows the user.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, errs.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	resp, err := h.librarySvc.Login(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Register(c echo.Context) error {
	var req model.CreateAdminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.librarySvc.RegisterAdmin(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.String(http.StatusCreated, "ok")
}

func (h *Handler) SearchBooks(c echo.Context) error {
	criteria, err := parseSearchCriteria(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	books, err := h.librarySvc.SearchBooks(c.Request().Context(), criteria)
	if err != nil {
		return httpError(err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) AddBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.librarySvc.AddBook(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.String(http.StatusCreated, "ok")
}

func (h *Handler) ImportBooks(c echo.Context) error {
	var req model.ImportBooksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	n, err := h.librarySvc.ImportBooks(c.Request().Context(), req.Path)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]int{"imported": n})
}

func (h *Handler) AddCard(c echo.Context) error {
	var req model.CreateCardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.librarySvc.AddCard(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.String(http.StatusCreated, "ok")
}

func (h *Handler) RemoveCard(c echo.Context) error {
	cardID := c.Param("cardId")
	if cardID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty cardId")
	}
	if err := h.librarySvc.RemoveCard(c.Request().Context(), cardID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListBorrows(c echo.Context) error {
	cardID := c.Param("cardId")
	if cardID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty cardId")
	}
	books, err := h.librarySvc.ListBorrows(c.Request().Context(), cardID)
	if err != nil {
		return httpError(err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) BorrowBook(c echo.Context) error {
	var req model.BorrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	adminID, err := auth.AdminID(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	borrow, err := h.librarySvc.BorrowBook(c.Request().Context(), req, adminID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, borrow)
}

func (h *Handler) ReturnBook(c echo.Context) error {
	var req model.ReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	borrow, err := h.librarySvc.ReturnBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, borrow)
}

func (h *Handler) NearestReturn(c echo.Context) error {
	bookID := c.Param("bookId")
	if bookID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty bookId")
	}
	nearest, err := h.librarySvc.NearestReturn(c.Request().Context(), bookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.NearestReturnResponse{
		BookID:     bookID,
		ReturnDate: model.Date{Time: nearest},
	})
}

// parseSearchCriteria coerces the text query params into typed criteria;
// any malformed number is the caller's fault.
func parseSearchCriteria(c echo.Context) (model.SearchCriteria, error) {
	criteria := model.SearchCriteria{
		Type:      c.QueryParam("type"),
		Title:     c.QueryParam("title"),
		Publisher: c.QueryParam("publisher"),
		Author:    c.QueryParam("author"),
		OrderBy:   c.QueryParam("orderBy"),
	}
	if v := c.QueryParam("desc"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return model.SearchCriteria{}, errors.Wrapf(err, "desc %q", v)
		}
		criteria.Descending = desc
	}

	intParam := func(name string, dst **int) error {
		v := c.QueryParam(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s %q", name, v)
		}
		*dst = &n
		return nil
	}
	if err := intParam("year", &criteria.Year); err != nil {
		return model.SearchCriteria{}, err
	}
	if err := intParam("yearFrom", &criteria.YearFrom); err != nil {
		return model.SearchCriteria{}, err
	}
	if err := intParam("yearTo", &criteria.YearTo); err != nil {
		return model.SearchCriteria{}, err
	}

	decParam := func(name string, dst **decimal.Decimal) error {
		v := c.QueryParam(name)
		if v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return errors.Wrapf(err, "%s %q", name, v)
		}
		*dst = &d
		return nil
	}
	if err := decParam("price", &criteria.Price); err != nil {
		return model.SearchCriteria{}, err
	}
	if err := decParam("priceFrom", &criteria.PriceFrom); err != nil {
		return model.SearchCriteria{}, err
	}
	if err := decParam("priceTo", &criteria.PriceTo); err != nil {
		return model.SearchCriteria{}, err
	}

	return criteria, nil
}
