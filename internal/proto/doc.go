// Package proto holds the protobuf messages and gRPC bindings generated from
// proto/auth.proto for the gophauth.AuthService.
//
// Regenerate with:
//
//	protoc --go_out=. --go_opt=module=github.com/dmitrijs2005/gophauth \
//	  --go-grpc_out=. --go-grpc_opt=module=github.com/dmitrijs2005/gophauth \
//	  proto/auth.proto
package proto
