// Package monitor is a terminal dashboard of the live record feed. It
// shows one table row per station with the newest logger status and
// weather values.
package monitor
