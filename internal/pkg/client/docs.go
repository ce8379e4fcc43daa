// Package client implements the client side of the trivia protocol.
//
// The client performs the following steps:
//  1. Connect to the server over TCP.
//  2. Log in with a username and password. The server allows a bounded number
//     of retries before it drops the connection.
//  3. Repeatedly request a question, pick a choice and submit the answer;
//     every request is a single round trip. The server replies with CORRECT or
//     INCORRECT plus the right choice text, until the question bank is
//     exhausted for this session.
//  4. Optionally query the personal score, the highscore table, or the list
//     of currently logged-in players.
//  5. Log out, which ends the session on the server side.
//
// The client is deliberately synchronous: the protocol is request/reply, and
// one connection serves one player.
package client
