// Package http exposes the scheduling services as a gin JSON API.
//
// The router exposes the following endpoints:
//   - POST /requests: submits a session request. Body: {"name","email","phone",
//     "date","time","type","notes"}. GET /requests?status= lists requests and
//     GET /requests/:id returns one.
//   - POST /requests/:id/confirm {"member_id","member_name"}, POST /requests/:id/reschedule
//     {"date","time"}, POST /requests/:id/cancel {"reason"}, POST /requests/:id/complete and
//     PUT /requests/:id/response {"message","template_id"} drive the request lifecycle.
//     GET /requests/:id/session returns the booked session.
//   - GET /sessions?date= or ?member_id=, GET /sessions/:id, POST /sessions/:id/status
//     {"status"} and PUT /sessions/:id/recording {"url"} manage scheduled sessions.
//   - GET /members/:id/availability, PUT /members/:id/availability/:day and
//     GET /members/:id/slots?date= manage weekly rules and list open slots.
//   - GET /healthz and GET /metrics are never behind the API key.
//
// Failures map to 400 (malformed body), 401 (missing or wrong API key), 404,
// 409 (booking conflict, with the blocking session) and 422 (validation or
// illegal status change). Messages are Japanese; field keys stay in English.
package http
