// Package gate exposes the controller snapshot over gRPC.
//
// The service is declared by hand with well-known protobuf types, so no
// generated code is needed: requests are google.protobuf.Empty and
// responses are google.protobuf.Struct.
package gate
