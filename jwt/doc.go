// Package jwt signs and verifies the access tokens minted by the in-process
// reference gateway. Claims follow the shape hosted auth backends hand to
// mobile clients: sub, email, sid, iat, exp.
package jwt
