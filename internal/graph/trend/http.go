package trend

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/moviegraph/costar/internal/platform/apperr"
	"github.com/moviegraph/costar/internal/platform/respond"
)

// defaultTrendingLimit is the page size when the caller supplies none.
const defaultTrendingLimit = 10

// Handler implements the HTTP layer for the trend ranking.
type Handler struct {
	service *Service
}

// NewHandler constructs a new trend [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RefreshResult acknowledges a completed snapshot refresh.
type RefreshResult struct {
	Pairs  int    `json:"pairs"`
	Status string `json:"status"`
}

// Routes returns a [chi.Router] configured with the trending endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listTrending)
	router.Post("/refresh", handler.refresh)

	return router
}

/*
GET /api/v1/trending.

Description: Returns the current trend ranking, hottest pairs first.

Request:
  - limit: int (Optional, defaults to 10, max 100)

Response:
  - 200: []Snapshot: Ranked snapshot rows
  - 400: Validation: Out-of-range limit
*/
func (handler *Handler) listTrending(writer http.ResponseWriter, request *http.Request) {

	// Resolve the limit, defaulting when absent
	limit := defaultTrendingLimit
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(writer, request, apperr.ValidationError("Invalid query parameter", apperr.FieldError{
				Field:   "limit",
				Message: "must be an integer",
			}))
			return
		}
		limit = parsed
	}

	// Domain Logic Execution
	snapshots, err := handler.service.TopTrending(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.OK(writer, snapshots)
}

/*
POST /api/v1/trending/refresh.

Description: Recomputes the full trend snapshot immediately instead of
waiting for the next scheduled cycle. At most one refresh runs at a time.

Request:
  - None

Response:
  - 200: RefreshResult: Snapshot row count
  - 409: ALREADY_RUNNING: A refresh is already in progress
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {

	// Run the refresh under its lease
	pairs, err := handler.service.Refresh(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.OK(writer, RefreshResult{Pairs: pairs, Status: "refreshed"})
}
