package api

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tcsec/vulncases/llm"
	"github.com/tcsec/vulncases/push"
	"github.com/tcsec/vulncases/schema"
	"github.com/tcsec/vulncases/store"
)

func decodeBody(c echo.Context, v any) error {
	return json.NewDecoder(c.Request().Body).Decode(v)
}

func (s *Server) listTestCases(c echo.Context) error {
	platform := c.QueryParam("platform")
	if platform != "" {
		normalized, err := schema.NormalizePlatform(platform)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid platform value", "message": err.Error()})
		}
		platform = normalized
	}
	records, err := s.store.FindByPlatform(c.Request().Context(), platform)
	if err != nil {
		s.log.Errorf("read test cases: %s", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database read error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"test_cases": records})
}

func (s *Server) createTestCases(c echo.Context) error {
	var payload any
	if err := decodeBody(c, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing JSON"})
	}
	items, err := ParseItems(payload)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no test cases in payload"})
	}

	records := make([]*schema.TestCase, 0, len(items))
	for _, item := range items {
		tc, err := schema.LoadRecord(item)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation failed",
				"message": err.Error(),
				"item":    item,
			})
		}
		records = append(records, tc)
	}

	ctx := c.Request().Context()
	if len(records) == 1 {
		if err := s.store.InsertOne(ctx, records[0]); err != nil {
			var conflict *store.ConflictError
			if errors.As(err, &conflict) {
				return c.JSON(http.StatusConflict, echo.Map{"error": conflict.Message})
			}
			s.log.Errorf("insert test case: %s", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database write error"})
		}
		s.notify(records)
		return c.JSON(http.StatusCreated, echo.Map{"inserted": 1, "vuln_id": records[0].VulnID})
	}

	inserted, err := s.store.InsertMany(ctx, records)
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":    "bulk write error",
				"inserted": inserted,
				"details":  conflict.Details,
			})
		}
		s.log.Errorf("insert test cases: %s", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database write error"})
	}
	s.notify(records)
	return c.JSON(http.StatusCreated, echo.Map{"inserted": inserted})
}

func (s *Server) updateTestCases(c echo.Context) error {
	var payload any
	if err := decodeBody(c, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing JSON"})
	}
	items, err := ParseItems(payload)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	updated := 0
	notFound := make([]string, 0)
	var updateErrs *multierror.Error
	for _, item := range items {
		id, fields, err := schema.LoadPartialUpdate(item)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation failed for update",
				"message": err.Error(),
				"item":    item,
			})
		}
		if len(fields) == 0 {
			continue
		}
		matched, err := s.store.UpdateOne(ctx, id, fields)
		if err != nil {
			updateErrs = multierror.Append(updateErrs, errors.Wrapf(err, "update %s", id))
			continue
		}
		if matched {
			updated++
		} else {
			notFound = append(notFound, id)
		}
	}
	if err := updateErrs.ErrorOrNil(); err != nil {
		s.log.Errorf("update test cases: %s", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database update error", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated, "not_found": notFound})
}

func (s *Server) deleteTestCases(c echo.Context) error {
	var payload any
	if err := decodeBody(c, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing JSON"})
	}
	ids, err := ParseDeleteIDs(payload)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	count, err := s.store.DeleteMany(c.Request().Context(), ids)
	if err != nil {
		s.log.Errorf("delete test cases: %s", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database delete error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted_count": count})
}

func (s *Server) generateMetadata(c echo.Context) error {
	var raw map[string]any
	if err := decodeBody(c, &raw); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or missing JSON"})
	}
	req, err := schema.LoadGenerateRequest(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "message": err.Error()})
	}
	obj, err := s.generator.GenerateMetadata(c.Request().Context(), req)
	if err != nil {
		var parseErr *llm.ParseFailureError
		if errors.As(err, &parseErr) {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error": "model output could not be parsed",
				"raw":   parseErr.Raw,
			})
		}
		s.log.Errorf("metadata generation failed: %s", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "metadata generation failed"})
	}
	return c.JSON(http.StatusOK, obj)
}

func (s *Server) health(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.log.Warnf("health check failed: %s", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// notify pushes freshly inserted records to the webhook, off the request
// path. Push failures are logged only.
func (s *Server) notify(records []*schema.TestCase) {
	if s.pusher == nil {
		return
	}
	go func() {
		for _, tc := range records {
			if err := s.pusher.PushRaw(push.NewRawTestCaseMessage(tc)); err != nil {
				s.log.Warnf("push test case %s failed: %s", tc.VulnID, err)
			}
		}
	}()
}
