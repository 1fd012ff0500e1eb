// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/storage"
)

func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ask request", "err", err)
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	minRelevance := s.config.DefaultMinRelevance
	if req.MinRelevance != nil {
		minRelevance = *req.MinRelevance
	}

	ctx := c.Request().Context()
	result, err := s.svc.Asker.Ask(ctx, req.Question, req.Filter, minRelevance)
	if err != nil {
		code := askStatus(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("ask failed", "err", err)
		}
		return fail(c, code, err.Error())
	}

	if req.Speak {
		if s.svc.Speech == nil {
			result.Warnings = append(result.Warnings, speechUnavailable)
		} else {
			s.svc.Speech.Render(ctx, result)
		}
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleIndex(c echo.Context) error {
	var req IndexRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid index request", "err", err)
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if len(req.Documents) == 0 {
		return fail(c, http.StatusBadRequest, "documents field is required")
	}

	ctx := c.Request().Context()
	index := s.svc.Indexer.RequestIndexing
	if req.Force {
		index = s.svc.Indexer.ForceIndexing
	}

	enqueued, err := index(ctx, req.Documents)
	resp := IndexResponse{Enqueued: enqueued}
	if err == nil {
		return c.JSON(http.StatusOK, resp)
	}

	resp.Errors = splitErrors(err)
	if errors.Is(err, core.ErrInvalidDocument) {
		return c.JSON(http.StatusBadRequest, resp)
	}
	s.logger.Error("indexing request failed", "enqueued", enqueued, "err", err)
	return c.JSON(http.StatusServiceUnavailable, resp)
}

func (s *Server) handleStatuses(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return fail(c, http.StatusBadRequest, "ids field is required")
	}

	statuses, err := s.svc.Statuses.GetStatuses(c.Request().Context(), req.IDs)
	if err != nil {
		s.logger.Error("reading statuses failed", "err", err)
		return fail(c, http.StatusServiceUnavailable, "status store unavailable")
	}
	return c.JSON(http.StatusOK, StatusResponse{Statuses: statuses})
}

func (s *Server) handleStatus(c echo.Context) error {
	id := core.DocumentID(c.Param("id"))

	rec, err := s.svc.Statuses.GetRecord(c.Request().Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusOK, core.StatusRecord{ID: id, Status: core.StatusUnknown})
	}
	if err != nil {
		s.logger.Error("reading status failed", "id", id, "err", err)
		return fail(c, http.StatusServiceUnavailable, "status store unavailable")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	ctx := c.Request().Context()

	docs, err := s.svc.Catalog.ListDocuments(ctx)
	if err != nil {
		s.logger.Error("listing documents failed", "err", err)
		return fail(c, http.StatusServiceUnavailable, "catalog unavailable")
	}
	records, err := s.svc.Statuses.List(ctx)
	if err != nil {
		s.logger.Error("listing statuses failed", "err", err)
		return fail(c, http.StatusServiceUnavailable, "status store unavailable")
	}

	byID := make(map[core.DocumentID]*core.StatusRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	list := DocumentList{Documents: make([]DocumentSummary, 0, len(docs))}
	for _, doc := range docs {
		summary := DocumentSummary{
			ID:          doc.ID,
			Title:       doc.Title,
			URI:         doc.URI,
			PublishDate: doc.PublishDate,
			Status:      core.StatusUnknown,
		}
		if rec, ok := byID[doc.ID]; ok {
			updated := rec.UpdatedAt
			summary.Status = rec.Status
			summary.Reason = rec.Reason
			summary.PartitionCount = rec.PartitionCount
			summary.UpdatedAt = &updated
		}
		list.Documents = append(list.Documents, summary)
	}
	return c.JSON(http.StatusOK, list)
}

// splitErrors flattens an errors.Join result into messages.
func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		msgs := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
