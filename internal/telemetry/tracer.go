package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for FFI and protocol operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Session / protocol attributes
	// ========================================================================
	AttrSessionID  = "session.id"
	AttrSessionOld = "session.state.old"
	AttrSessionNew = "session.state.new"
	AttrSequence   = "wire.sequence"
	AttrMsgType    = "wire.message_type"
	AttrPayloadLen = "wire.payload_length"

	// ========================================================================
	// FFI attributes
	// ========================================================================
	AttrFunction     = "ffi.function"
	AttrSourceLang   = "ffi.source_language"
	AttrTargetLang   = "ffi.target_language"
	AttrArgCount     = "ffi.arg_count"
	AttrCacheHit     = "ffi.cache_hit"
	AttrCallDuration = "ffi.call_duration_ms"

	// ========================================================================
	// Memory bridge attributes
	// ========================================================================
	AttrRegionSize  = "memory.region_size"
	AttrRegionOwner = "memory.region_owner"
	AttrShareFlags  = "memory.share_flags"

	// ========================================================================
	// State machine attributes
	// ========================================================================
	AttrStateFrom      = "fsm.from"
	AttrStateTo        = "fsm.to"
	AttrTransitionName = "fsm.transition"

	// ========================================================================
	// Pub/sub attributes
	// ========================================================================
	AttrTopic          = "pubsub.topic"
	AttrSubscriptionID = "pubsub.subscription_id"
)

// Span names for operations. Format: <component>.<operation>.
const (
	SpanSessionHandshake = "session.handshake"
	SpanSessionSend      = "session.send"
	SpanSessionDispatch  = "session.dispatch"

	SpanFFICall     = "ffi.call_function"
	SpanFFIExpose   = "ffi.expose_function"
	SpanFFIRegister = "ffi.register_language"

	SpanMemoryShare   = "memory.share"
	SpanMemoryAcquire = "memory.acquire"
	SpanMemoryRelease = "memory.release"

	SpanFSMTransition = "fsm.transition"

	SpanPubsubPublish = "pubsub.publish"
)

// SessionID returns an attribute for the session identifier.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Function returns an attribute for the FFI function name.
func Function(name string) attribute.KeyValue {
	return attribute.String(AttrFunction, name)
}

// SourceLanguage returns an attribute for the calling language.
func SourceLanguage(lang string) attribute.KeyValue {
	return attribute.String(AttrSourceLang, lang)
}

// TargetLanguage returns an attribute for the dispatch target language.
func TargetLanguage(lang string) attribute.KeyValue {
	return attribute.String(AttrTargetLang, lang)
}

// CacheHit returns an attribute indicating a call-cache hit or miss.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// Topic returns an attribute for a pub/sub topic name.
func Topic(name string) attribute.KeyValue {
	return attribute.String(AttrTopic, name)
}

// MessageType returns an attribute for a wire message type.
func MessageType(t uint8) attribute.KeyValue {
	return attribute.Int(AttrMsgType, int(t))
}
