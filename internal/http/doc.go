// Package http exposes the meeting and training services over JSON.
//
// Routes use Go 1.22 method patterns:
//   - POST /accounts and POST /sessions are public. Login answers with
//     {"token","expires_at","account"} and also sets the session_token cookie and the
//     X-Session-Token header. POST /sessions/current/refresh rotates the token and
//     DELETE /sessions/current revokes it.
//   - /meetings, /participants and /notes manage live meetings. Participant and note
//     mutations are rejected with 409 MEETING_NOT_ACTIVE once a meeting has ended.
//     GET /meetings/{id}/participants accepts ?sort=points|name|join_time.
//   - /trainings and /registrations manage trainings. POST /trainings/{id}/registrations
//     is the public sign up form; every other registration route needs a session whose
//     account owns or collaborates on the training.
//   - The two export routes answer with an Excel compatible .xls attachment.
//
// Errors are returned as {"error_code","message","errors"}; "errors" carries per field
// messages for 422 responses. DTOs live next to the handler that serves them.
package http
