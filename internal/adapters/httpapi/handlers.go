package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bnema/dcloud-assistant/internal/application"
	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/gin-gonic/gin"
)

type SessionCreator interface {
	Create() (*application.Session, error)
}

type Asker interface {
	AskSession(ctx context.Context, id, query string) (application.Answer, error)
}

type InstanceLister interface {
	List() []domain.Instance
}

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Answer   string        `json:"answer"`
	Fallback bool          `json:"fallback"`
	Dispatch *dispatchInfo `json:"dispatch,omitempty"`
}

type dispatchInfo struct {
	Status     string `json:"status"`
	Pool       string `json:"pool,omitempty"`
	Instance   string `json:"instance,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

type instanceResponse struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

func createSessionHandler(sessions SessionCreator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessions.Create()
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrSessionManagerClosed) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": session.ID})
	}
}

func askHandler(asker Asker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		query := strings.TrimSpace(req.Query)
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}

		answer, err := asker.AskSession(c.Request.Context(), c.Param("id"), query)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, toAskResponse(answer))
	}
}

func instancesHandler(registry InstanceLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		instances := registry.List()
		out := make([]instanceResponse, 0, len(instances))
		for _, instance := range instances {
			out = append(out, instanceResponse{
				Name:    instance.Name,
				URL:     instance.URL,
				Kind:    string(instance.Kind),
				Default: instance.IsDefault(),
			})
		}

		c.JSON(http.StatusOK, gin.H{"instances": out})
	}
}

func toAskResponse(answer application.Answer) askResponse {
	resp := askResponse{Answer: answer.Text, Fallback: answer.Fallback}
	if answer.Dispatch != nil {
		resp.Dispatch = &dispatchInfo{
			Status:     string(answer.Dispatch.Status),
			Pool:       string(answer.Dispatch.Pool),
			Instance:   answer.Dispatch.Instance,
			Endpoint:   answer.Dispatch.Endpoint,
			StatusCode: answer.Dispatch.StatusCode,
		}
	}
	return resp
}
