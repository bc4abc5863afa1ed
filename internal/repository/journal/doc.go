// Package journal records controller events to an append-only CBOR file.
//
// Each event is one self-delimiting CBOR item with integer keys, so a file
// can be streamed back with Reader even if the process was killed mid-write.
// The journal is an audit trail only; controller state is never restored from it.
package journal
