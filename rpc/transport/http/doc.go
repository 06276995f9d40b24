// Package http carries RPC messages as HTTP requests. The server accepts
// POST /{serviceId} with the serialized request as body and answers with the
// serialized response. The client spreads requests round robin over its
// endpoints and retries failed requests with backoff.
//
// HTTP is the slowest transport but passes through proxies and can be driven
// with curl when the JSON serializer is used:
//
//	curl -X POST --data '{"msg_type":"owner"}' http://localhost:8080/100
package http
