package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wippyai/postal"
)

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Address  string `json:"address"`
	Language string `json:"language,omitempty"`
	Country  string `json:"country,omitempty"`
}

// ExpandRequest is the body of POST /v1/expand. Options default to
// postal.DefaultExpandOptions; Languages and Root override them.
type ExpandRequest struct {
	Address   string                `json:"address"`
	Languages []string              `json:"languages,omitempty"`
	Root      bool                  `json:"root,omitempty"`
	Options   *postal.ExpandOptions `json:"options,omitempty"`
}

// NormalizeRequest is the body of POST /v1/normalize and
// POST /v1/normalized-tokens.
type NormalizeRequest struct {
	Input     string                   `json:"input"`
	Languages []string                 `json:"languages,omitempty"`
	Options   *postal.NormalizeOptions `json:"options,omitempty"`
}

type TokenizeRequest struct {
	Input      string `json:"input"`
	Whitespace bool   `json:"whitespace,omitempty"`
}

type ClassifyRequest struct {
	Address string `json:"address"`
}

type DuplicateRequest struct {
	Value1    string   `json:"value1"`
	Value2    string   `json:"value2"`
	Languages []string `json:"languages,omitempty"`
}

type ToponymDuplicateRequest struct {
	Record1   postal.Components `json:"record1"`
	Record2   postal.Components `json:"record2"`
	Languages []string          `json:"languages,omitempty"`
}

// FuzzyDuplicateRequest is the body of POST /v1/duplicates/fuzzy/:kind.
// Options default to postal.DefaultFuzzyDuplicateOptions.
type FuzzyDuplicateRequest struct {
	Tokens1 postal.FuzzyTokens            `json:"tokens1"`
	Tokens2 postal.FuzzyTokens            `json:"tokens2"`
	Options *postal.FuzzyDuplicateOptions `json:"options,omitempty"`
}

// NameHashRequest is the body of POST /v1/hashes/name. Options default to
// postal.DefaultNameHashOptions.
type NameHashRequest struct {
	Name      string                `json:"name"`
	Languages []string              `json:"languages,omitempty"`
	Options   *postal.ExpandOptions `json:"options,omitempty"`
}

// NearDupeRequest is the body of POST /v1/hashes/near-dupe. Options default
// to postal.DefaultNearDupeOptions.
type NearDupeRequest struct {
	Record  postal.Components       `json:"record"`
	Options *postal.NearDupeOptions `json:"options,omitempty"`
}

type PlaceLanguagesRequest struct {
	Record postal.Components `json:"record"`
}

// TokenResponse is a token with the input text it covers.
type TokenResponse struct {
	postal.Token
	Text string `json:"text"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.client == nil || s.client.Closed() {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "closed"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

// orEmpty keeps empty results as [] rather than null in responses.
func orEmpty[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

func (s *Server) handleParse(c *gin.Context) {
	var req ParseRequest
	if !bind(c, &req) {
		return
	}
	components, err := s.client.ParseAddress(c.Request.Context(), req.Address, postal.ParseOptions{
		Language: req.Language,
		Country:  req.Country,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"components": orEmpty(components)})
}

func (s *Server) handleExpand(c *gin.Context) {
	var req ExpandRequest
	if !bind(c, &req) {
		return
	}
	opts := postal.DefaultExpandOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	if req.Languages != nil {
		opts.Languages = req.Languages
	}
	if req.Root {
		opts.Root = true
	}
	expansions, err := s.client.ExpandAddress(c.Request.Context(), req.Address, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expansions": orEmpty(expansions)})
}

func (req NormalizeRequest) options() postal.NormalizeOptions {
	opts := postal.DefaultNormalizeOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	if req.Languages != nil {
		opts.Languages = req.Languages
	}
	return opts
}

func (s *Server) handleNormalize(c *gin.Context) {
	var req NormalizeRequest
	if !bind(c, &req) {
		return
	}
	normalized, err := s.client.NormalizeString(c.Request.Context(), req.Input, req.options())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"normalized": normalized})
}

func (s *Server) handleNormalizedTokens(c *gin.Context) {
	var req NormalizeRequest
	if !bind(c, &req) {
		return
	}
	tokens, err := s.client.NormalizedTokens(c.Request.Context(), req.Input, req.options())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": orEmpty(tokens)})
}

func (s *Server) handleTokenize(c *gin.Context) {
	var req TokenizeRequest
	if !bind(c, &req) {
		return
	}
	tokens, err := s.client.Tokenize(c.Request.Context(), req.Input, req.Whitespace)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]TokenResponse, len(tokens))
	for i, tok := range tokens {
		out[i] = TokenResponse{Token: tok, Text: tok.Slice(req.Input)}
	}
	c.JSON(http.StatusOK, gin.H{"tokens": out})
}

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if !bind(c, &req) {
		return
	}
	languages, err := s.client.ClassifyLanguage(c.Request.Context(), req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"languages": orEmpty(languages)})
}

func (s *Server) handleDuplicate(c *gin.Context) {
	kind, err := postal.ParseDuplicateKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req DuplicateRequest
	if !bind(c, &req) {
		return
	}
	status, err := s.client.IsDuplicate(c.Request.Context(), kind, req.Value1, req.Value2,
		postal.DuplicateOptions{Languages: req.Languages})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleToponymDuplicate(c *gin.Context) {
	var req ToponymDuplicateRequest
	if !bind(c, &req) {
		return
	}
	status, err := s.client.IsToponymDuplicate(c.Request.Context(), req.Record1, req.Record2,
		postal.DuplicateOptions{Languages: req.Languages})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleFuzzyDuplicate(c *gin.Context) {
	kind, err := postal.ParseFuzzyKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req FuzzyDuplicateRequest
	if !bind(c, &req) {
		return
	}
	opts := postal.DefaultFuzzyDuplicateOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	result, err := s.client.IsDuplicateFuzzy(c.Request.Context(), kind, req.Tokens1, req.Tokens2, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleNameHashes(c *gin.Context) {
	var req NameHashRequest
	if !bind(c, &req) {
		return
	}
	opts := postal.DefaultNameHashOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	if req.Languages != nil {
		opts.Languages = req.Languages
	}
	hashes, err := s.client.NameHashes(c.Request.Context(), req.Name, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hashes": orEmpty(hashes)})
}

func (s *Server) handleNearDupeHashes(c *gin.Context) {
	var req NearDupeRequest
	if !bind(c, &req) {
		return
	}
	opts := postal.DefaultNearDupeOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	hashes, err := s.client.NearDupeHashes(c.Request.Context(), req.Record, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hashes": orEmpty(hashes)})
}

func (s *Server) handlePlaceLanguages(c *gin.Context) {
	var req PlaceLanguagesRequest
	if !bind(c, &req) {
		return
	}
	languages, err := s.client.PlaceLanguages(c.Request.Context(), req.Record)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"languages": orEmpty(languages)})
}
