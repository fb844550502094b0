// Package util holds name validation and identifier helpers shared by the
// node and transport layers. It lives in internal to avoid committing to a
// public API.
package util
