// Package status serves a read-only JSON view of the controller over HTTP.
package status
