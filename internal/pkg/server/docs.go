// Package server implements the trivia session coordinator.
//
// The server performs the following steps:
//  1. Binds a TCP listener and accepts client connections, one goroutine per
//     connection, so no client's I/O can stall another.
//  2. Creates exactly one session per connection and drives its state machine
//     from the connection's byte stream: frames are decoded by the wire
//     package, dispatched to the session, and the replies written back.
//  3. Tracks logged-in usernames in a live registry, which also enforces a
//     single active login per username and answers the LOGGED command.
//  4. On any read error, decode error past the fault budget, write error, or
//     LOGOUT, tears the session down exactly once: the registry slot is
//     released, the score flushed, and the connection closed. A failure in one
//     session never touches another session's progress.
//  5. On shutdown (context cancellation), stops accepting, closes all live
//     connections, waits for every session goroutine, and persists the
//     account store.
//
// Each connection has an idle read deadline so an abandoned client cannot pin
// a session forever.
package server
