package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/classifier"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/logging"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

const defaultTopK = 5

// bind decodes and validates the request body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}

func (s *Server) handleHealth(c echo.Context) error {
	services := map[string]string{}
	status := "ok"

	report := func(name string, configured bool) {
		if configured {
			services[name] = "ok"
		} else {
			services[name] = "disabled"
		}
	}
	report("classifier", s.deps.Classifier != nil)
	report("embeddings", s.deps.Embedder != nil)
	report("tutor", s.deps.Tutor != nil)

	switch {
	case s.deps.Index == nil:
		services["vectorstore"] = "disabled"
	case !s.deps.Index.Ready():
		services["vectorstore"] = "starting"
		status = "degraded"
	default:
		services["vectorstore"] = "ok"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:   status,
		Version:  s.config.Version,
		Services: services,
	})
}

func (s *Server) handleClassify(c echo.Context) error {
	if s.deps.Classifier == nil {
		return errUnavailable
	}
	var req ClassifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := s.deps.Classifier.Classify(c.Request().Context(), req.Query, classifier.Options{
		History:        req.History,
		KnowledgeCheck: req.KnowledgeCheck,
		Semantic:       req.Semantic,
		ForceMode:      classifier.Mode(req.ForceMode),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ClassifyResponse{Result: res})
}

func (s *Server) handleClassifierStats(c echo.Context) error {
	if s.deps.Classifier == nil {
		return errUnavailable
	}
	return c.JSON(http.StatusOK, s.deps.Classifier.Stats())
}

func (s *Server) handleEmbed(c echo.Context) error {
	if s.deps.Embedder == nil {
		return errUnavailable
	}
	var req EmbedRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.deps.Embedder.Embed(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleEmbedBatch(c echo.Context) error {
	if s.deps.Embedder == nil {
		return errUnavailable
	}
	var req EmbedBatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.deps.Embedder.EmbedBatch(c.Request().Context(), req.Texts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EmbedBatchResponse{Results: res})
}

// collection returns the validated :name path parameter.
func collection(c echo.Context) (string, error) {
	name := c.Param("name")
	if err := vectorstore.ValidateCollectionName(name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.deps.Index == nil {
		return errUnavailable
	}
	name, err := collection(c)
	if err != nil {
		return err
	}
	var req SearchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}

	results, err := s.deps.Index.Search(c.Request().Context(), name, req.Query, vectorstore.SearchOptions{
		TopK:     req.TopK,
		MinScore: req.MinScore,
		Filter:   req.Filter,
	})
	if err != nil {
		return err
	}
	if results == nil {
		results = []vectorstore.SearchResult{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Collection: name, Results: results})
}

func toDocuments(in []DocumentInput) []vectorstore.Document {
	docs := make([]vectorstore.Document, len(in))
	for i, d := range in {
		docs[i] = vectorstore.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}
	return docs
}

func (s *Server) handleAddDocuments(c echo.Context) error {
	if s.deps.Index == nil {
		return errUnavailable
	}
	name, err := collection(c)
	if err != nil {
		return err
	}
	var req DocumentsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ids, err := s.deps.Index.AddDocuments(c.Request().Context(), name, toDocuments(req.Documents))
	if err != nil {
		return err
	}
	s.logger.Info("documents added", zap.String("collection", name), zap.Int("count", len(ids)))
	return c.JSON(http.StatusCreated, DocumentsResponse{IDs: ids})
}

func (s *Server) handleUpdateDocuments(c echo.Context) error {
	if s.deps.Index == nil {
		return errUnavailable
	}
	name, err := collection(c)
	if err != nil {
		return err
	}
	var req DocumentsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ids := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		if d.ID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "every document needs an id to update")
		}
		ids[i] = d.ID
	}

	if err := s.deps.Index.UpdateDocuments(c.Request().Context(), name, toDocuments(req.Documents)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DocumentsResponse{IDs: ids})
}

func (s *Server) handleDeleteDocuments(c echo.Context) error {
	if s.deps.Index == nil {
		return errUnavailable
	}
	name, err := collection(c)
	if err != nil {
		return err
	}
	var req DeleteDocumentsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Index.DeleteDocuments(c.Request().Context(), name, req.IDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCount(c echo.Context) error {
	if s.deps.Index == nil {
		return errUnavailable
	}
	name, err := collection(c)
	if err != nil {
		return err
	}
	n, err := s.deps.Index.Count(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Collection: name, Count: n})
}

func (s *Server) handleStartSession(c echo.Context) error {
	if s.deps.Tutor == nil {
		return errUnavailable
	}
	var req StartSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := logging.WithUserID(c.Request().Context(), req.UserID)
	reply, err := s.deps.Tutor.Start(ctx, req.UserID, req.Topic, tutor.Level(req.Level))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, reply)
}

func (s *Server) handleInteract(c echo.Context) error {
	if s.deps.Tutor == nil {
		return errUnavailable
	}
	var req MessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	ctx := logging.WithSessionID(c.Request().Context(), id)
	reply, err := s.deps.Tutor.Interact(ctx, id, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) handleGetSession(c echo.Context) error {
	if s.deps.Tutor == nil {
		return errUnavailable
	}
	id := c.Param("id")
	st, err := s.deps.Tutor.GetSession(logging.WithSessionID(c.Request().Context(), id), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleEndSession(c echo.Context) error {
	if s.deps.Tutor == nil {
		return errUnavailable
	}
	id := c.Param("id")
	reply, err := s.deps.Tutor.EndSession(logging.WithSessionID(c.Request().Context(), id), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}
