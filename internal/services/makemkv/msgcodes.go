package makemkv

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"ripline/internal/disc"
	"ripline/internal/logging"
)

// MakeMKV MSG codes emitted as MSG:code,... records. Codes >= 5000 are
// disc or rip level; lower codes are general informational or I/O messages.
const (
	MsgReadError            = 2003
	MsgWriteError           = 2019
	MsgTitleError           = 5003
	MsgRipCompleted         = 5004 // "N titles saved, M failed"
	MsgDiscOpenError        = 5010
	MsgEvalExpiredTooOld    = 5021
	MsgRipSummary           = 5037
	MsgEvalPeriodExpired    = 5052
	MsgEvalExpiredShareware = 5055
	MsgBackupFailed         = 5080
)

// msgHandler classifies MSG records and remembers anything that should fail
// the invocation.
type msgHandler struct {
	logger     *slog.Logger
	cancelRip  context.CancelCauseFunc
	saved      int
	failed     int
	fatalErr   error
	readErrors int
}

func (h *msgHandler) handleMSG(line string) {
	code := parseMSGCode(line)
	text := parseMSGText(line)

	switch code {
	case MsgReadError:
		h.handleReadError(text)
	case MsgWriteError:
		h.handleWriteError(text)
	case MsgTitleError:
		logging.WarnWithContext(h.logger, "makemkv title save failed", "makemkv_title_error",
			logging.String(logging.FieldErrorHint, "one title failed but other titles may succeed"),
			logging.String(logging.FieldImpact, "single title missing from output"),
			logging.String("msg_text", text),
		)
	case MsgRipCompleted:
		h.handleRipCompleted(line, text)
	case MsgDiscOpenError:
		logging.WarnWithContext(h.logger, "makemkv disc open error", "makemkv_disc_open_error",
			logging.String(logging.FieldErrorHint, "disc may not be readable or drive may be busy"),
			logging.String(logging.FieldImpact, "rip cannot proceed until disc is accessible"),
			logging.String("msg_text", text),
		)
	case MsgEvalExpiredTooOld, MsgEvalExpiredShareware:
		h.fail(code, text, "update or register MakeMKV")
	case MsgEvalPeriodExpired:
		logging.WarnWithContext(h.logger, "makemkv evaluation period expiring", "makemkv_eval_warning",
			logging.String(logging.FieldErrorHint, "consider purchasing a MakeMKV license"),
			logging.String(logging.FieldImpact, "ripping stops working when evaluation expires"),
			logging.String("msg_text", text),
		)
	case MsgRipSummary:
		h.logger.Info("makemkv copy summary", logging.String("msg_text", text))
	case MsgBackupFailed:
		logging.ErrorWithContext(h.logger, "makemkv backup failed", "makemkv_backup_failed",
			logging.String("msg_text", text),
		)
	default:
		if code >= 5000 {
			h.logger.Warn("makemkv disc message",
				logging.String(logging.FieldEventType, "makemkv_disc_message"),
				logging.Int("msg_code", code),
				logging.String("msg_text", text),
			)
			return
		}
		h.logger.Debug("makemkv message",
			logging.Int("msg_code", code),
			logging.String("msg_text", text),
		)
	}
}

func (h *msgHandler) handleReadError(text string) {
	h.readErrors++
	upper := strings.ToUpper(text)
	classification := "read_error"
	switch {
	case strings.Contains(upper, "TRAY OPEN"):
		classification = "tray_open"
	case strings.Contains(upper, "L-EC UNCORRECTABLE"):
		classification = "uncorrectable_read"
	case strings.Contains(upper, "HARDWARE ERROR"):
		classification = "hardware_error"
	}
	logging.WarnWithContext(h.logger, "makemkv read error", "makemkv_read_error",
		logging.String(logging.FieldErrorHint, "disc may have physical damage or drive issue"),
		logging.String(logging.FieldImpact, "rip may produce corrupted or incomplete output"),
		logging.String("classification", classification),
		logging.Int("read_error_count", h.readErrors),
		logging.String("msg_text", text),
	)
}

func (h *msgHandler) handleWriteError(text string) {
	logging.ErrorWithContext(h.logger, "makemkv write error", "makemkv_write_error",
		logging.String("msg_text", text),
	)
	if strings.Contains(text, "No such file") {
		h.fail(MsgWriteError, text, "check that the output directory exists and is writable")
	}
}

func (h *msgHandler) handleRipCompleted(line, text string) {
	h.saved, h.failed = ParseMSGSprintf(line)
	h.logger.Info("makemkv rip result",
		logging.String(logging.FieldEventType, "makemkv_rip_result"),
		logging.Int("titles_saved", h.saved),
		logging.Int("titles_failed", h.failed),
		logging.String("msg_text", text),
	)
	if h.saved == 0 {
		h.fatalErr = &ServiceMsgError{
			Code:    MsgRipCompleted,
			Message: text,
			Hint:    "MakeMKV completed but saved 0 titles; check disc readability",
		}
	}
}

func (h *msgHandler) fail(code int, text, hint string) {
	logging.ErrorWithContext(h.logger, "makemkv fatal message", "makemkv_fatal",
		logging.Int("msg_code", code),
		logging.String(logging.FieldErrorHint, hint),
		logging.String("msg_text", text),
	)
	h.fatalErr = &ServiceMsgError{Code: code, Message: text, Hint: hint}
	if h.cancelRip != nil {
		h.cancelRip(h.fatalErr)
	}
}

// ServiceMsgError wraps a MakeMKV MSG code into an error with a hint.
type ServiceMsgError struct {
	Code    int
	Message string
	Hint    string
}

func (e *ServiceMsgError) Error() string {
	if e.Hint != "" {
		return e.Message + " (" + e.Hint + ")"
	}
	return e.Message
}

// parseMSGCode returns the numeric code of an MSG record, or -1.
func parseMSGCode(line string) int {
	if !strings.HasPrefix(line, prefixMessage) {
		return -1
	}
	columns := disc.ParseLine(line)
	if len(columns) < 2 {
		return -1
	}
	code, err := strconv.Atoi(strings.TrimPrefix(columns[0], prefixMessage))
	if err != nil {
		return -1
	}
	return code
}

// parseMSGText returns the formatted message of an MSG record.
func parseMSGText(line string) string {
	if !strings.HasPrefix(line, prefixMessage) {
		return ""
	}
	columns := disc.ParseLine(line)
	if len(columns) < 4 {
		return ""
	}
	return columns[3]
}

// ParseMSGSprintf extracts the saved and failed counts from a MSG:5004
// record. The sprintf parameters start at the sixth field.
func ParseMSGSprintf(line string) (saved, failed int) {
	if !strings.HasPrefix(line, prefixMessage) {
		return 0, 0
	}
	columns := disc.ParseLine(line)
	if len(columns) > 5 {
		saved, _ = strconv.Atoi(strings.TrimSpace(columns[5]))
	}
	if len(columns) > 6 {
		failed, _ = strconv.Atoi(strings.TrimSpace(columns[6]))
	}
	return saved, failed
}
