package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"notifyconsole/internal/render"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

// SessionRequest addresses one editing session. Confirm answers the
// confirmation prompts the operation raises.
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Confirm   bool   `json:"confirm"`
}

type SessionRuleRequest struct {
	SessionRequest
	Category string `json:"category" binding:"required"`
	ID       string `json:"id"`
}

type SessionEditRequest struct {
	SessionRequest
	Fields RuleFieldsRequest `json:"fields"`
}

type SubjectRequest struct {
	SessionRequest
	Subject string `json:"subject"`
}

type ResetTemplateRequest struct {
	SessionRequest
	Blocks []template.Block `json:"blocks"` // null loads the default template
}

type BlockAddRequest struct {
	SessionRequest
	Kind string `json:"kind" binding:"required"`
}

type BlockRequest struct {
	SessionRequest
	BlockID string `json:"block_id" binding:"required"`
}

type BlockUpdateRequest struct {
	BlockRequest
	Patch BlockPatchRequest `json:"patch"`
}

type BlockMoveRequest struct {
	SessionRequest
	Index     int `json:"index"`
	Direction int `json:"direction" binding:"oneof=-1 1"`
}

type EMLRequest struct {
	SessionRequest
	Theme   string            `json:"theme"`
	Context *variable.Context `json:"context"`
	To      []string          `json:"to"`
}

// withSession binds req, runs fn on the addressed session and answers with
// the resulting session state.
func (s *Server) withSession(c *gin.Context, req interface{}, sr func() SessionRequest, status int, fn func(*session.Session) error) {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r := sr()
	var resp SessionStateResponse
	err := s.console.Do(r.SessionID, r.Confirm, func(sess *session.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		resp = ConvertSessionState(r.SessionID, sess)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, resp)
}

func (s *Server) openSession(c *gin.Context) {
	id := s.console.OpenSession()
	c.JSON(http.StatusCreated, SessionStateResponse{SessionID: id, State: session.Idle})
}

func (s *Server) closeSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.console.CloseSession(req.SessionID, req.Confirm); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

func (s *Server) sessionState(c *gin.Context) {
	var req SessionRequest
	s.withSession(c, &req, func() SessionRequest { return req }, http.StatusOK, func(*session.Session) error { return nil })
}

func (s *Server) sessionSelect(c *gin.Context) {
	var req SessionRuleRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		cat, err := rule.ParseCategory(req.Category)
		if err != nil {
			return err
		}
		return sess.Select(cat, req.ID)
	})
}

func (s *Server) sessionNew(c *gin.Context) {
	var req SessionRuleRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		cat, err := rule.ParseCategory(req.Category)
		if err != nil {
			return err
		}
		return sess.NewRule(cat)
	})
}

func (s *Server) sessionEdit(c *gin.Context) {
	var req SessionEditRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		return sess.Edit(func(r *rule.Rule) { ApplyFields(&req.Fields, r) })
	})
}

func (s *Server) sessionSave(c *gin.Context) {
	var req SessionRequest
	s.withSession(c, &req, func() SessionRequest { return req }, http.StatusOK, func(sess *session.Session) error {
		return sess.Save(c.Request.Context())
	})
}

func (s *Server) sessionDiscard(c *gin.Context) {
	var req SessionRequest
	s.withSession(c, &req, func() SessionRequest { return req }, http.StatusOK, func(sess *session.Session) error {
		return sess.Discard()
	})
}

func (s *Server) sessionDelete(c *gin.Context) {
	var req SessionRuleRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		cat, err := rule.ParseCategory(req.Category)
		if err != nil {
			return err
		}
		return sess.Delete(c.Request.Context(), cat, req.ID)
	})
}

func (s *Server) sessionSubject(c *gin.Context) {
	var req SubjectRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		return sess.SetSubject(req.Subject)
	})
}

func (s *Server) sessionResetTemplate(c *gin.Context) {
	var req ResetTemplateRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		for _, b := range req.Blocks {
			if !b.Kind.Valid() {
				return template.ErrUnknownKind
			}
		}
		return sess.ResetTemplate(req.Blocks)
	})
}

func (s *Server) blockAdd(c *gin.Context) {
	var req BlockAddRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		kind, err := template.ParseKind(req.Kind)
		if err != nil {
			return err
		}
		id, err := sess.AddBlock(kind)
		if err != nil {
			return err
		}
		return sess.SelectBlock(id)
	})
}

func (s *Server) blockUpdate(c *gin.Context) {
	var req BlockUpdateRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		return sess.UpdateBlock(req.BlockID, ConvertBlockPatch(req.Patch))
	})
}

func (s *Server) blockRemove(c *gin.Context) {
	var req BlockRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		return sess.RemoveBlock(req.BlockID)
	})
}

func (s *Server) blockMove(c *gin.Context) {
	var req BlockMoveRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		return sess.MoveBlock(req.Index, req.Direction)
	})
}

func (s *Server) blockSelect(c *gin.Context) {
	var req BlockRequest
	s.withSession(c, &req, func() SessionRequest { return req.SessionRequest }, http.StatusOK, func(sess *session.Session) error {
		return sess.SelectBlock(req.BlockID)
	})
}

func (s *Server) sessionPreview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := s.preview(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// sessionEML answers the email preview as a message/rfc822 download.
func (s *Server) sessionEML(c *gin.Context) {
	var req EMLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := s.preview(PreviewRequest{
		SessionRequest: req.SessionRequest,
		Channel:        string(render.ChannelEmail),
		Theme:          req.Theme,
		Context:        req.Context,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	to := req.To
	if len(to) == 0 {
		to = []string{s.config.Preview.EmailFrom}
	}
	var buf bytes.Buffer
	if err := render.WriteEML(&buf, doc, s.config.Preview.EmailFrom, to...); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="preview.eml"`)
	c.Data(http.StatusOK, "message/rfc822", buf.Bytes())
}

func (s *Server) preview(req PreviewRequest) (*render.Document, error) {
	channel, err := render.ParseChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	var doc *render.Document
	err = s.console.Do(req.SessionID, req.Confirm, func(sess *session.Session) error {
		var err error
		doc, err = sess.Preview(channel, req.Context, s.previewOptions(req.Theme))
		return err
	})
	return doc, err
}
