/*
Package domain contains the core types of the form dialogue.

It is kept free of I/O so that every adapter (stores, transports) can depend on
it without pulling anything else in.

# Key Entities

  - State: the step a participant is answering (NONE when idle).
  - Session: the per-participant state plus the answers collected so far.
  - Profile: the completed, durable record.
  - Event: an inbound text, button press or image.
  - Reply: what a transport should render back.
*/
package domain
