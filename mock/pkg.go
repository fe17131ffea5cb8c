// Package mock runs an image server for tests. It generates images on request rather
// than serving files: '/img/<name>.png?w=..&h=..' returns a solid png of the requested
// size whose color is derived from the name, '/anim/<name>.gif?frames=..' returns an
// animated gif, '/corrupt/<name>' returns bytes that are not an image and
// '/status/<code>' returns that status. Anything else is a 404. The server can be
// configured for basic auth, TLS, mTLS, a per-request delay and forced failures.
package mock
