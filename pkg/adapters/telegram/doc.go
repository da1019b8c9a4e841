// Package telegram connects the dialogue runner to the Telegram Bot API.
//
// Updates are long-polled, mapped to domain events and submitted to the
// runner; replies are rendered back into sends, edits and deletes.
package telegram
