// Package session keeps a process-wide authenticated session in sync with a
// credential backend and exposes it as observable state.
//
// Session store:
//   - Store holds the single State (identity, profile, loading) and notifies
//     subscribers synchronously, in subscription order. Only the
//     Synchronizer mutates it; everything else is a read-only subscriber.
//
// Synchronization:
//   - Synchronizer subscribes to the backend's session-change stream and
//     issues one retrieval of any pre-existing session. The first result
//     from either source ends the loading phase. Sign-in schedules a
//     deferred profile fetch whose result is applied only while the same
//     identity is still current; sign-out clears identity and profile
//     immediately. Profile fetch failures are logged and leave the session
//     signed in with a nil profile.
//
// Forms:
//   - FormController validates sign-in and registration submissions with
//     ozzo-validation, guards against double submits with a busy flag, and
//     maps backend failures to user-facing notices carrying the backend
//     message verbatim. It performs no navigation; consumers react to the
//     store instead (see RequireSession and RedirectAuthenticated).
package session
