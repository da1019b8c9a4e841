/*
Package formbot drives a chat-based form: it walks one participant at a time
through name, age, gender, photo, education and a news opt-in, validates every
answer before moving on, and stores the completed profile.

# Concept

The dialogue is a small finite-state machine. Each participant has a Session
holding the step they are on and the answers so far; a static transition table
decides what each step accepts and where it leads. The Engine is transport
agnostic: Telegram, HTTP and the console all feed it domain.Event values and
render the domain.Reply it returns.

# Key Features

  - Resumable: sessions live in a pluggable store (memory, files, Redis).
  - Concurrency-safe: events for one participant are applied in order;
    different participants never wait on each other.
  - Strict: invalid answers re-prompt and never touch the session.

# Usage

	eng, err := formbot.New(memory.NewStore(), memory.NewProfiles())
	if err != nil {
		log.Fatal(err)
	}

	reply, err := eng.Handle(ctx, "42", domain.TextEvent("/fillform"))
	if err != nil {
		log.Fatal(err) // a store is down; nothing was changed
	}
	fmt.Println(reply.Text)
*/
package formbot
