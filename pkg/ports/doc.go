/*
Package ports defines the interfaces between the dialogue core and its adapters.

# Key Interfaces

  - SessionStore: persists in-progress sessions (memory, file, redis).
  - ProfileRepository: stores completed profiles (memory, file, redis, sqlite).
  - DistributedLocker: serializes one participant's events across replicas.
  - Dialogue: the driving port consumed by transports.

RunSessionStoreContract and RunProfileRepositoryContract are shared test suites
that every adapter runs against itself.
*/
package ports
