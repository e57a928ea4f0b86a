package audit

import (
	"context"

	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// Audit actions.
const (
	ActionRegister            = "user.register"
	ActionLogin               = "user.login"
	ActionLoginFailed         = "user.login_failed"
	ActionSetActive           = "admin.set_active"
	ActionSetRole             = "admin.set_role"
	ActionConversationCreated = "conversation.create"
	ActionChatJoin            = "chat.join"
	ActionChatRejected        = "chat.rejected"
	ActionChatLeave           = "chat.leave"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit entry via the context logger.
func Log(ctx context.Context, action string, userID uint, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit entry with a free-form detail.
func LogWithDetail(ctx context.Context, action string, userID uint, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}

// LogTarget emits an audit entry for an action performed on another record.
func LogTarget(ctx context.Context, action string, userID, targetID uint, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint(log.FieldUserID, userID).
		Uint(FieldTargetID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
