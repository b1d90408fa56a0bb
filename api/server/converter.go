package server

import (
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

// RuleFieldsRequest carries a partial rule edit. Nil fields are left as
// they are; template changes go through the block endpoints.
type RuleFieldsRequest struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	Active      *bool                   `json:"active"`
	Scope       *string                 `json:"scope"`
	Severity    *rule.Severity          `json:"severity"`
	Channels    *rule.Channels          `json:"channels"`
	Recipients  *rule.Recipients        `json:"recipients"`
	Event       *rule.EventTrigger      `json:"event"`
	Alert       *rule.AlertTrigger      `json:"alert"`
	Expiration  *rule.ExpirationTrigger `json:"expiration"`
}

// ApplyFields copies the set fields of req into r.
func ApplyFields(req *RuleFieldsRequest, r *rule.Rule) {
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.Active != nil {
		r.Active = *req.Active
	}
	if req.Scope != nil {
		r.Scope = *req.Scope
	}
	if req.Severity != nil {
		r.Severity = *req.Severity
	}
	if req.Channels != nil {
		r.Channels = *req.Channels
	}
	if req.Recipients != nil {
		r.Recipients = *req.Recipients
	}
	if req.Event != nil {
		ev := *req.Event
		r.Event = &ev
	}
	if req.Alert != nil {
		al := *req.Alert
		r.Alert = &al
	}
	if req.Expiration != nil {
		ex := rule.ExpirationTrigger{
			DaysBefore: append([]int(nil), req.Expiration.DaysBefore...),
			DaysAfter:  append([]int(nil), req.Expiration.DaysAfter...),
		}
		r.Expiration = &ex
	}
}

// BlockPatchRequest is the wire form of template.Patch.
type BlockPatchRequest struct {
	Content   *string `json:"content"`
	Alignment *string `json:"alignment"`
	Emphasis  *string `json:"emphasis"`
	URL       *string `json:"url"`
}

func ConvertBlockPatch(req BlockPatchRequest) template.Patch {
	p := template.Patch{Content: req.Content, URL: req.URL}
	if req.Alignment != nil {
		a := template.Alignment(*req.Alignment)
		p.Alignment = &a
	}
	if req.Emphasis != nil {
		e := template.Emphasis(*req.Emphasis)
		p.Emphasis = &e
	}
	return p
}

// SessionStateResponse describes the session after an operation.
type SessionStateResponse struct {
	SessionID     string           `json:"session_id"`
	State         session.State    `json:"state"`
	IsNew         bool             `json:"is_new"`
	Rule          *rule.Rule       `json:"rule,omitempty"`
	Blocks        []template.Block `json:"blocks,omitempty"`
	Subject       string           `json:"subject,omitempty"`
	SelectedBlock string           `json:"selected_block,omitempty"`
}

func ConvertSessionState(id string, s *session.Session) SessionStateResponse {
	resp := SessionStateResponse{
		SessionID: id,
		State:     s.State(),
		IsNew:     s.IsNew(),
		Rule:      s.Current(),
	}
	if tpl := s.Template(); tpl != nil {
		resp.Blocks = tpl.Blocks
		resp.Subject = tpl.Subject
	}
	if b, ok := s.SelectedBlock(); ok {
		resp.SelectedBlock = b.ID
	}
	return resp
}

// PreviewRequest selects the channel, theme and data of a preview. A
// missing context uses the sample data.
type PreviewRequest struct {
	SessionRequest
	Channel string            `json:"channel" binding:"required"`
	Theme   string            `json:"theme"`
	Context *variable.Context `json:"context"`
}
