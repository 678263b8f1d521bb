// Package resilience holds the circuit breaker the HTTP client wraps around
// auth backend calls. While the backend is down the breaker answers
// immediately, which the guard treats like any other probe failure.
package resilience
