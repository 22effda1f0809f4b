package path

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/moviegraph/costar/internal/platform/apperr"
	requestutil "github.com/moviegraph/costar/internal/platform/request"
	"github.com/moviegraph/costar/internal/platform/respond"
)

// Handler implements the HTTP layer for shortest-path queries.
type Handler struct {
	service *Service
}

// NewHandler constructs a new path [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the path endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{from}/{to}", handler.getPath)

	return router
}

/*
GET /api/v1/paths/{from}/{to}.

Description: Finds a shortest collaboration path between two people, bounded
by max_depth hops. The absence of a path is a successful response with
found=false, not an error.

Request:
  - from: int64 (Person ID)
  - to: int64 (Person ID)
  - max_depth: int (Optional hop bound; defaults to the configured depth)

Response:
  - 200: Result: Path, or a no-path outcome
  - 400: Validation: Bad IDs or non-positive max_depth
  - 404: ErrNotFound: Unknown person
*/
func (handler *Handler) getPath(writer http.ResponseWriter, request *http.Request) {

	// Extract both IDs from URL
	from, err := requestutil.Int64Param(request, "from")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	to, err := requestutil.Int64Param(request, "to")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Resolve the hop bound, defaulting when absent
	depth := handler.service.DefaultDepth()
	if raw := request.URL.Query().Get("max_depth"); raw != "" {
		parsed, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			respond.Error(writer, request, apperr.ValidationError("Invalid query parameter", apperr.FieldError{
				Field:   "max_depth",
				Message: "must be an integer",
			}))
			return
		}
		depth = parsed
	}

	// Domain Logic Execution
	result, err := handler.service.Find(request.Context(), from, to, depth)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.OK(writer, result)
}
