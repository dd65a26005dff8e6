package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/service"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

const (
	msgStatusUpdated  = "Status updated"
	msgHistoryCleared = "History cleared"
)

type Dependencies struct {
	Logger      zerolog.Logger
	Addr        string
	LockService *service.LockService

	// CORSOrigin is sent as Access-Control-Allow-Origin.  Empty disables CORS
	// headers.
	CORSOrigin string

	// WriteLimiter throttles POST /status and DELETE /history.  nil means
	// unlimited.
	WriteLimiter *rate.Limiter
}

type Server struct {
	httpServer  *http.Server
	logger      zerolog.Logger
	router      *mux.Router
	lockService *service.LockService
}

func NewServer(d Dependencies) *Server {
	router := mux.NewRouter()
	logger := d.Logger.With().Str("component", "httpapi").Logger()

	s := &Server{
		logger:      logger,
		router:      router,
		lockService: d.LockService,
	}

	writes := func(h http.HandlerFunc) http.Handler { return rateLimit(d.WriteLimiter, h) }

	router.HandleFunc("/status", s.handleGetStatus).Methods(http.MethodGet)
	router.Handle("/status", writes(s.handleSetStatus)).Methods(http.MethodPost)
	router.HandleFunc("/history", s.handleListHistory).Methods(http.MethodGet)
	router.HandleFunc("/history/{date}", s.handleListHistoryByDate).Methods(http.MethodGet)
	router.Handle("/history", writes(s.handleClearHistory)).Methods(http.MethodDelete)
	router.HandleFunc("/log", s.handleReadLog).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// CORS sits outside the router so preflight requests never reach route
	// matching.
	var handler http.Handler = router
	handler = corsMiddleware(d.CORSOrigin, handler)
	handler = loggingMiddleware(logger, handler)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.lockService.GetState(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "get status", err)
		return
	}

	if acceptsProtobuf(r) {
		writeProto(w, http.StatusOK, statusResponseToProto(state))
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: state.Status.Locked()})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req types.SetStatusRequest

	if isProtobuf(r) {
		var pb structpb.Value
		if err := readProto(w, r, &pb); err != nil {
			writeError(w, http.StatusBadRequest, "invalid protobuf body")
			return
		}
		req = setStatusRequestFromProto(&pb)
	} else if err := decodeJSON(w, r, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "status" {
			s.writeServiceError(w, r, "set status", service.ErrInvalidStatus)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := s.lockService.SetStatus(r.Context(), req); err != nil {
		s.writeServiceError(w, r, "set status", err)
		return
	}

	if isProtobuf(r) {
		writeProto(w, http.StatusOK, structpb.NewStringValue(msgStatusUpdated))
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: msgStatusUpdated})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.lockService.ListHistory(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{History: types.HistoryEntries(recs)})
}

func (s *Server) handleListHistoryByDate(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	recs, err := s.lockService.ListHistoryByDate(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, "list history by date", err)
		return
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{History: types.HistoryEntries(recs)})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := s.lockService.ClearHistory(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "clear history", err)
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: msgHistoryCleared, Deleted: &n})
}

func (s *Server) handleReadLog(w http.ResponseWriter, r *http.Request) {
	lines, err := s.lockService.ReadLog(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "read log", err)
		return
	}
	writeJSON(w, http.StatusOK, types.LogResponse{Log: lines})
}

// decodeJSON reads a single JSON object from a size-capped body, rejecting
// unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
