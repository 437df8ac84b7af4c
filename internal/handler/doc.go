// Package handler implements the HTTP surface of the voting app: the page
// handler for GET and POST on "/" and the middlewares wrapped around it
// (request ids, security headers, access logging, CSRF protection).
package handler
