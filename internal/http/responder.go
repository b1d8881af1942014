package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/example/session-scheduler/internal/application"
)

var (
	errBadRequestBody   = errors.New("無効なリクエスト形式です。")
	errInvalidRequestID = errors.New("無効なリクエスト ID です。")
	errInvalidSessionID = errors.New("無効なセッション ID です。")
	errInvalidMemberID  = errors.New("無効なメンバー ID です。")
	errInvalidDay       = errors.New("曜日は 0 から 6 の整数で指定してください。")
	errMissingAPIKey    = errors.New("API キーを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(c *gin.Context, status int, payload any) {
	if c == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		c.Status(status)
		return
	}

	c.JSON(status, payload)
}

func (r responder) writeError(c *gin.Context, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		ctx := c.Request.Context()
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.abort(c, status, errorResponse{Message: message})
}

// writeBindError reports a malformed or invalid request body. Struct tag
// violations are listed per field, anything else is a plain bad request.
func (r responder) writeBindError(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		details := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			details[fe.Field()] = translateBindingTag(fe)
		}
		r.abort(c, http.StatusBadRequest, errorResponse{
			Message: localizedStatusMessage(http.StatusBadRequest),
			Errors:  details,
		})
		return
	}
	r.writeError(c, http.StatusBadRequest, errBadRequestBody)
}

func (r responder) handleServiceError(c *gin.Context, err error) {
	if err == nil {
		r.writeError(c, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var conflict *application.ConflictError
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.abort(c, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_UNAUTHORIZED",
			Message:   localizedStatusMessage(http.StatusUnauthorized),
		})
	case errors.Is(err, application.ErrNotFound):
		r.abort(c, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.As(err, &conflict):
		session := toSessionDTO(conflict.Session)
		r.abort(c, http.StatusConflict, errorResponse{
			ErrorCode:          "BOOKING_CONFLICT",
			Message:            "担当メンバーは指定の時間帯に別のセッションが入っています。",
			ConflictingSession: &session,
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			resp := errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  localizeValidationErrors(vErr),
			}
			if errors.Is(err, application.ErrInvalidTransition) {
				resp.ErrorCode = "INVALID_TRANSITION"
			}
			r.abort(c, http.StatusUnprocessableEntity, resp)
			return
		}

		ctx := c.Request.Context()
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.abort(c, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) abort(c *gin.Context, status int, payload errorResponse) {
	c.AbortWithStatusJSON(status, payload)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "氏名は必須です。"
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "date is required":
		return "日付は必須です。"
	case "date must be formatted as YYYY-MM-DD":
		return "日付は YYYY-MM-DD 形式で指定してください。"
	case "time is invalid", "time must be formatted as HH:MM or H:MM AM":
		return "時刻は HH:MM または H:MM AM 形式で指定してください。"
	case "unknown session type":
		return "セッション種別が不正です。"
	case "unknown request status", "unknown session status":
		return "ステータスが不正です。"
	case "member id is required":
		return "担当メンバー ID は必須です。"
	case "daily session limit reached":
		return "担当メンバーの 1 日あたりのセッション上限に達しています。"
	case "linked session is closed":
		return "関連するセッションは既に終了しています。"
	case "message or template id is required":
		return "返信メッセージまたはテンプレート ID を指定してください。"
	case "recording url must be an absolute http or https url":
		return "録画 URL は http または https の絶対 URL で指定してください。"
	case "cannot attach a recording to a cancelled session":
		return "キャンセル済みのセッションには録画を登録できません。"
	case "day of week must be between 0 and 6":
		return "曜日は 0 から 6 の整数で指定してください。"
	case "start time is invalid":
		return "開始時刻が不正です。"
	case "end time is invalid":
		return "終了時刻が不正です。"
	case "end time must be after start time":
		return "終了時刻は開始時刻より後である必要があります。"
	case "max sessions per day must not be negative":
		return "1 日あたりの上限は 0 以上で指定してください。"
	default:
		if from, to, ok := parseTransitionMessage(message); ok {
			return fmt.Sprintf("ステータスを %s から %s に変更することはできません。", from, to)
		}
		return message
	}
}

func parseTransitionMessage(message string) (string, string, bool) {
	rest, ok := strings.CutPrefix(message, "cannot change status from ")
	if !ok {
		return "", "", false
	}
	from, to, ok := strings.Cut(rest, " to ")
	return from, to, ok
}

func translateBindingTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須項目です。"
	case "email":
		return "メールアドレスの形式が不正です。"
	case "url":
		return "有効な URL を指定してください。"
	case "oneof":
		return "次のいずれかを指定してください: " + fe.Param()
	case "max":
		return fe.Param() + " 文字以内で指定してください。"
	case "min", "gte":
		return fe.Param() + " 以上で指定してください。"
	default:
		return "値が不正です。"
	}
}

type errorResponse struct {
	ErrorCode          string            `json:"error_code,omitempty"`
	Message            string            `json:"message"`
	Errors             map[string]string `json:"errors,omitempty"`
	ConflictingSession *sessionDTO       `json:"conflicting_session,omitempty"`
}
