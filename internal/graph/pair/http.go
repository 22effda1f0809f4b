package pair

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	requestutil "github.com/moviegraph/costar/internal/platform/request"
	"github.com/moviegraph/costar/internal/platform/respond"
	"github.com/moviegraph/costar/pkg/pagination"
	"github.com/moviegraph/costar/pkg/query"
)

// Handler implements the HTTP layer for collaboration pairs and graph
// population. It translates web requests into domain service calls.
type Handler struct {
	service *Service
}

// NewHandler constructs a new pair [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RebuildAccepted acknowledges a rebuild request.
type RebuildAccepted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// Routes returns a [chi.Router] configured with the pair domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// # Pair Lookups
	router.Get("/pairs/{personA}/{personB}", handler.getPair)
	router.Get("/people/{personID}/collaborators", handler.listCollaborators)

	// # Graph Population
	router.Post("/works/{workID}/apply", handler.applyWork)
	router.Post("/rebuild", handler.startRebuild)

	return router
}

/*
GET /api/v1/pairs/{personA}/{personB}.

Description: Retrieves the collaboration aggregate for two people. The two
IDs may be given in either order.

Request:
  - personA: int64 (Person ID)
  - personB: int64 (Person ID)

Response:
  - 200: Pair: Aggregate collaboration record
  - 400: Validation: Non-positive or identical IDs
  - 404: ErrNotFound: The two people never collaborated
*/
func (handler *Handler) getPair(writer http.ResponseWriter, request *http.Request) {

	// Extract both IDs from URL
	personA, err := requestutil.Int64Param(request, "personA")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	personB, err := requestutil.Int64Param(request, "personB")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Domain Logic Execution
	pair, err := handler.service.Get(request.Context(), personA, personB)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.OK(writer, pair)
}

/*
GET /api/v1/people/{personID}/collaborators.

Description: Provides a paginated list of a person's collaborators ranked
by shared work count. Supports filtering by collaboration type tags.

Request:
  - personID: int64 (Person ID)
  - types: string (Comma-separated collaboration type tags)
  - limit: int
  - page: int

Response:
  - 200: []Collaborator: Paginated ranked list
  - 400: Validation: Bad ID or unknown type tag
*/
func (handler *Handler) listCollaborators(writer http.ResponseWriter, request *http.Request) {

	// Extract ID from URL
	personID, err := requestutil.Int64Param(request, "personID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Extract standardized pagination
	paginationParams := pagination.FromRequest(request)

	// Parse the optional type filter
	typeFilter := query.StringSlice(request.URL.Query().Get("types"))

	// Domain Logic Execution
	collaborators, total, err := handler.service.TopCollaborators(request.Context(), personID, typeFilter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.Paginated(writer, collaborators, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
POST /api/v1/works/{workID}/apply.

Description: Runs one work's credits through the edge builder and merges the
result into the graph. Idempotent; re-applying the same work changes nothing.

Request:
  - workID: int64 (Work ID)

Response:
  - 200: ApplyResult: Candidate and skip counts
  - 400: Validation: Bad work ID
  - 404: ErrNotFound: Unknown work
*/
func (handler *Handler) applyWork(writer http.ResponseWriter, request *http.Request) {

	// Extract ID from URL
	workID, err := requestutil.Int64Param(request, "workID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Apply the work
	result, err := handler.service.ApplyWork(request.Context(), workID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
POST /api/v1/rebuild.

Description: Starts a full drop-and-regenerate graph rebuild in the
background. At most one rebuild runs at a time.

Request:
  - None

Response:
  - 202: RebuildAccepted: Rebuild started, correlate logs via run_id
  - 409: ALREADY_RUNNING: A rebuild is already in progress
*/
func (handler *Handler) startRebuild(writer http.ResponseWriter, request *http.Request) {

	// Take the rebuild lease and launch
	runID, err := handler.service.StartRebuild(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.Accepted(writer, RebuildAccepted{RunID: runID, Status: "started"})
}
