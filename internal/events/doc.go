// Package events implements the asynchronous, ordered fan-out used to deliver
// auth state changes to subscribers.
//
// A [Bus] owns one dispatcher goroutine. Values are delivered to every
// subscriber in publish order, one at a time, so a subscriber never observes
// two deliveries concurrently.
package events
