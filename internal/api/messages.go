package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/seantiz/skinnypoem/internal/engine"
	"github.com/seantiz/skinnypoem/internal/model"
)

// Message types accepted on POST /v1/messages.
const (
	msgGetPoemState  = "GET_POEM_STATE"
	msgVote          = "VOTE"
	msgGeneratePoem  = "GENERATE_POEM"
	msgAdminSimulate = "ADMIN_SIMULATE"
	msgGetDailyPoem  = "GET_DAILY_POEM"
)

// Response types.
const (
	respPoemState = "POEM_STATE_RESPONSE"
	respVote      = "VOTE_RESPONSE"
	respGenerate  = "GENERATE_RESPONSE"
	respSimulate  = "SIMULATE_RESPONSE"
	respDailyPoem = "DAILY_POEM_RESPONSE"
	respError     = "ERROR"
)

// message is the request envelope. Data carries the vote for VOTE; Date
// selects the poem for GET_DAILY_POEM.
type message struct {
	MessageID string          `json:"messageId,omitempty"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Date      string          `json:"date,omitempty"`
}

// messageResponse is the reply envelope. Success is omitted for replies
// that cannot fail partially.
type messageResponse struct {
	MessageID string            `json:"messageId"`
	Type      string            `json:"type"`
	Success   *bool             `json:"success,omitempty"`
	Message   string            `json:"message,omitempty"`
	Data      *model.PoemState  `json:"data,omitempty"`
	Poem      *model.SkinnyPoem `json:"poem,omitempty"`
}

// handleMessage dispatches one message envelope. Failures are reported in
// the body as an ERROR reply, so the status is 200 for any well-formed
// envelope.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg message
	if err := decodeJSON(w, r, &msg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	resp := s.dispatch(r.Context(), r, msg)
	resp.MessageID = msg.MessageID
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) dispatch(ctx context.Context, r *http.Request, msg message) messageResponse {
	success := true

	switch msg.Type {
	case msgGetPoemState:
		st, err := s.engine.State(ctx)
		if err != nil {
			return s.errorReply("get poem state", err)
		}
		return messageResponse{Type: respPoemState, Data: st}

	case msgVote:
		var req model.VoteRequest
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &req) != nil {
			return messageResponse{Type: respError, Message: "Invalid vote"}
		}
		st, err := s.engine.Vote(ctx, userID(r), req)
		if err != nil {
			return s.errorReply("vote", err)
		}
		return messageResponse{Type: respVote, Success: &success, Message: "Vote submitted successfully!", Data: st}

	case msgGeneratePoem:
		p, err := s.engine.Generate(ctx, engine.TriggerManual)
		if err != nil {
			return s.errorReply("generate poem", err)
		}
		return messageResponse{Type: respGenerate, Success: &success, Poem: p}

	case msgAdminSimulate:
		if !s.isAdmin(r) {
			return messageResponse{Type: respError, Message: "Admin token required"}
		}
		st, err := s.engine.Simulate(ctx)
		if err != nil {
			return s.errorReply("simulate phase", err)
		}
		return messageResponse{Type: respSimulate, Success: &success, Message: "Phase simulated successfully!", Data: st}

	case msgGetDailyPoem:
		p, err := s.engine.DailyPoem(ctx, msg.Date)
		if err != nil {
			reply := s.errorReply("get daily poem", err)
			failed := false
			return messageResponse{Type: respDailyPoem, Success: &failed, Message: reply.Message}
		}
		return messageResponse{Type: respDailyPoem, Success: &success, Poem: p}

	default:
		return messageResponse{Type: respError, Message: "Unknown message type"}
	}
}

func (s *Server) errorReply(op string, err error) messageResponse {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op, "error", err)
	}
	return messageResponse{Type: respError, Message: message}
}
