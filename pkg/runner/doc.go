/*
Package runner implements the interactive session loop around a Parley bot.

It bridges the single-threaded conversation engine and the outside world:
reading user input through pluggable handlers, recognizing the exit
sentinels, sanitizing what comes in, and persisting a conversation
snapshot after every successful turn.

# Key Components

  - Runner: The loop orchestrator. One Runner drives one conversation.
  - IOHandler: Decouples how messages are read and replies presented.
  - TextHandler: Interactive terminal usage with a "> " prompt.
  - JSONHandler: JSON-lines in and out, for piping and host processes.

# Usage

	r := runner.New(
		runner.WithSpeaker(bot.Name),
		runner.WithStore(store),
		runner.WithSessionID("user-1"),
	)

	if err := r.Run(ctx, bot); err != nil {
		log.Fatal(err)
	}
*/
package runner
