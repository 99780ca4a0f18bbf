// Package server is the network front door: a gin router for submitting
// workflows, querying status and managing saved workflows, plus a socket.io
// endpoint that streams live status through the notification bridge.
package server
