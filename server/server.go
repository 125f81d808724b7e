package server

import (
	"net/http"
	"strings"

	"docquery/query"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// Config maps collection names to the fields their search parameter
// scans. Collections missing from the map stay queryable, just without
// search.
type Config struct {
	SearchFields map[string][]string
}

type Server struct {
	db  *mongo.Database
	cfg Config
}

func New(db *mongo.Database, cfg Config) *Server {
	return &Server{db: db, cfg: cfg}
}

// Router builds the gin engine with the collection read endpoint.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog())

	api := r.Group("/api")
	api.GET("/:collection", s.list)
	return r
}

// list translates the request's query string into a filtered, sorted,
// paginated read and returns the page with its metadata.
func (s *Server) list(c *gin.Context) {
	name := c.Param("collection")
	params := query.ParseQuery(c.Request.URL.Query())

	features := query.New(query.NewHandle(s.db.Collection(name)), params).
		Search(s.cfg.SearchFields[name]...).
		Filter().
		Sort(query.DefaultSort).
		Paginate(query.DefaultLimit)
	if specs := parsePopulate(params); len(specs) > 0 {
		features.Populate(specs...)
	}

	res, err := features.ExecWithMeta(c.Request.Context())
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("collection", name).
			Msg("query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// parsePopulate reads the populate parameter as a comma-separated list
// of relation paths.
func parsePopulate(params query.Params) []query.Populate {
	raw := params.Get(query.ParamPopulate)
	if raw == "" {
		return nil
	}
	var specs []query.Populate
	for _, path := range strings.Split(raw, ",") {
		path = strings.TrimSpace(path)
		if path != "" {
			specs = append(specs, query.Populate{Path: path})
		}
	}
	return specs
}
