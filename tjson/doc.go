// Package tjson implements the typed JSON value format exchanged between
// a graph database query engine and its clients.
//
// Plain JSON cannot tell an integer from a float, carry exact bytes, a
// zoned timestamp or a graph object. tjson wraps every value in an
// envelope naming its type:
//
//	{"$type": "Integer", "_value": "9223372036854775807"}
//
// # Data Model
//
// Scalars: Null, Boolean, Integer, Float, String, ByteArray
// Containers: List, Map
// Temporal: Date, Time, DateTime, ZonedDateTime, Duration
// Graph: Node, Relationship, Path
//
// A Value is immutable and is built with the constructors (Int, Str,
// List, NodeOf, ...) or by decoding.
//
// # Payloads
//
//	Boolean        true
//	Integer        "42"                          decimal string
//	Float          "1.5"                         shortest round-trip text
//	String         "text"
//	ByteArray      [1, 2, 255]
//	Map            {"k": <envelope>}
//	List           [<envelope>, ...]
//	Date           "2024-02-29"
//	Time           "12:30:00"
//	DateTime       "2024-02-29T12:30:00"
//	ZonedDateTime  "2024-02-29T12:30:00[+02:00]"
//	Duration       "P1Y2M3DT4H5M6.5S"
//	Node           {"_element_id", "_labels", "_properties"}
//	Relationship   {"_element_id", "_type", "_start_node_element_id",
//	                "_end_node_element_id", "_properties"}
//	Path           [<Node>, <Relationship>, <Node>, ...]
//
// # Decoding
//
// Unmarshal and Decoder read JSON text. FromTree accepts any generic
// tree of maps, slices and scalars, which is how the binary codecs in
// package transcode reuse the same dispatch. Every failure is an *Error
// wrapping one of the Err* kinds; nothing panics on malformed input.
// Nesting is bounded by DecodeOptions.MaxDepth.
//
// Decoding also accepts the compact single-key shape
//
//	{"Integer": "42"}
//
// Encoding always writes the two-field envelope.
//
// ToNative and FromNative convert between a Value and plain Go data for
// callers that do not need the type tags.
package tjson
