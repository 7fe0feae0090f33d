package server

import (
	"encoding/json"
	"net/http"
	"time"
)

type quizSubmitRequest struct {
	QuizID  string         `json:"quizId"`
	Answers map[string]int `json:"answers"`
}

type progressRequest struct {
	CourseID string `json:"courseId"`
	Lesson   int    `json:"lesson"`
	Percent  int    `json:"percent"`
}

// handleQuizSubmit accepts a quiz submission. Grading lives in a separate
// service; this endpoint validates shape and acknowledges receipt.
func (s *Server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	var req quizSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "quizId is required")
		return
	}
	accountID, _ := AccountIDFromContext(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"quizId":     req.QuizID,
		"accountId":  accountID,
		"receivedAt": time.Now().UTC(),
	})
}

// handleProgress records a course progress tick.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "courseId is required")
		return
	}
	if req.Percent < 0 || req.Percent > 100 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "percent must be 0-100")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"courseId":  req.CourseID,
		"lesson":    req.Lesson,
		"percent":   req.Percent,
		"updatedAt": time.Now().UTC(),
	})
}
