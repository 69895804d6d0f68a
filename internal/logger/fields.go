package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying across the FFI runtime, protocol state machine, and wire
// protocol layers.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Session & Wire Protocol
	// ========================================================================
	KeySessionID  = "session_id"
	KeySequence   = "sequence"
	KeyMsgType    = "message_type"
	KeyPayloadLen = "payload_length"
	KeyState      = "state"
	KeyPrevState  = "prev_state"

	// ========================================================================
	// FFI Runtime
	// ========================================================================
	KeyFunction   = "function"
	KeySourceLang = "source_language"
	KeyTargetLang = "target_language"
	KeyArgCount   = "arg_count"
	KeyCacheHit   = "cache_hit"

	// ========================================================================
	// Memory Bridge
	// ========================================================================
	KeyRegionOwner = "region_owner"
	KeyRegionSize  = "region_size"
	KeyRefCount    = "refcount"
	KeyShareFlags  = "share_flags"

	// ========================================================================
	// State Machine
	// ========================================================================
	KeyTransition = "transition"
	KeyStateFrom  = "state_from"
	KeyStateTo    = "state_to"

	// ========================================================================
	// Pub/Sub
	// ========================================================================
	KeyTopic          = "topic"
	KeySubscriptionID = "subscription_id"
	KeySubscriberCnt  = "subscriber_count"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeySeverity   = "severity"
	KeySource     = "source"
	KeyComponent  = "component"
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Sequence returns a slog.Attr for the wire protocol sequence number.
func Sequence(seq uint32) slog.Attr {
	return slog.Uint64(KeySequence, uint64(seq))
}

// MsgType returns a slog.Attr for the wire message type.
func MsgType(t uint8) slog.Attr {
	return slog.Int(KeyMsgType, int(t))
}

// PayloadLen returns a slog.Attr for a payload length in bytes.
func PayloadLen(n uint32) slog.Attr {
	return slog.Uint64(KeyPayloadLen, uint64(n))
}

// State returns a slog.Attr for a state name.
func State(name string) slog.Attr {
	return slog.String(KeyState, name)
}

// Function returns a slog.Attr for an FFI function name.
func Function(name string) slog.Attr {
	return slog.String(KeyFunction, name)
}

// SourceLang returns a slog.Attr for the calling language.
func SourceLang(lang string) slog.Attr {
	return slog.String(KeySourceLang, lang)
}

// TargetLang returns a slog.Attr for the dispatch target language.
func TargetLang(lang string) slog.Attr {
	return slog.String(KeyTargetLang, lang)
}

// CacheHit returns a slog.Attr indicating a cache hit or miss.
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// RegionOwner returns a slog.Attr for a memory region's owning language.
func RegionOwner(lang string) slog.Attr {
	return slog.String(KeyRegionOwner, lang)
}

// RegionSize returns a slog.Attr for a memory region's size in bytes.
func RegionSize(size uint64) slog.Attr {
	return slog.Uint64(KeyRegionSize, size)
}

// RefCount returns a slog.Attr for a reference count.
func RefCount(n int32) slog.Attr {
	return slog.Int64(KeyRefCount, int64(n))
}

// Transition returns a slog.Attr for a state machine transition name.
func Transition(name string) slog.Attr {
	return slog.String(KeyTransition, name)
}

// StateFrom returns a slog.Attr for a transition's source state.
func StateFrom(name string) slog.Attr {
	return slog.String(KeyStateFrom, name)
}

// StateTo returns a slog.Attr for a transition's target state.
func StateTo(name string) slog.Attr {
	return slog.String(KeyStateTo, name)
}

// Topic returns a slog.Attr for a pub/sub topic name.
func Topic(name string) slog.Attr {
	return slog.String(KeyTopic, name)
}

// SubscriptionID returns a slog.Attr for a subscription identifier.
func SubscriptionID(id uint32) slog.Attr {
	return slog.Uint64(KeySubscriptionID, uint64(id))
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// ErrorCode returns a slog.Attr for a numeric/taxonomy error code.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Severity returns a slog.Attr for an error severity.
func Severity(sev string) slog.Attr {
	return slog.String(KeySeverity, sev)
}

// Source returns a slog.Attr for an error's originating component.
func Source(name string) slog.Attr {
	return slog.String(KeySource, name)
}

// Component returns a slog.Attr identifying the logging component.
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Err returns a slog.Attr for an error value. Returns an empty (zero) Attr
// for a nil error so callers can pass it unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
