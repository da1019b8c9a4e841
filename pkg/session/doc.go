/*
Package session serializes work on each participant's session.

Events for one participant must be applied one at a time, in order, or two
quick answers could both read the same state and one would be lost. The
Manager provides that guarantee inside a process with a keyed mutex, and across
replicas with an optional ports.DistributedLocker.
*/
package session
