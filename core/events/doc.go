// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - connection.*
//   - session.*
//   - user_input.*
//   - assistant_response.*
//   - order.*
//   - provider.*
//   - turn_state.*
//
// connection events
//
//   - ConnectionStateChanged (connection.state_changed): the session's
//     connection lifecycle state moved.
//
// session events
//
//   - SessionCreated (session.created): the peer acknowledged the session;
//     configuration is about to be negotiated.
//   - SessionReady (session.ready): the session is configured and turn
//     operations are valid. Emitted on explicit peer confirmation or on the
//     readiness timeout fallback.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): peer detected speech in
//     the audio buffer during an active recording.
//   - UserSpeechStopped (user_input.speech_stopped): peer detected end of
//     speech during an active recording.
//   - UserAudioCommitted (user_input.audio_committed): buffered audio was
//     committed into a conversation item.
//   - UserAudioCleared (user_input.audio_cleared): the peer audio buffer was
//     discarded.
//   - UserTranscriptSegment (user_input.transcript_segment): append-only
//     transcript piece for a conversation item.
//   - UserTranscriptFinal (user_input.transcript_final): terminal transcript
//     for the active user item.
//
// assistant_response events
//
//   - AssistantResponseStarted (assistant_response.started): response
//     generation started.
//   - AssistantResponseSegment (assistant_response.segment): streamed
//     assistant text piece.
//   - AssistantResponseFinal (assistant_response.final): the response is
//     complete; carries the completed-turn count.
//
// order events
//
//   - OrderAddRequested (order.add_requested): the assistant asked to add
//     items to the order; nameless items are already filtered out.
//   - OrderConfirmRequested (order.confirm_requested): the assistant asked
//     to confirm, review, or cancel the order.
//   - OrderRemoveRequested (order.remove_requested): the assistant asked to
//     remove an item from the order.
//
// provider events
//
//   - ProviderRateLimited (provider.rate_limited): peer reported a
//     rate-limit error; transient, retried by the connection layer.
//   - ProviderSessionExpired (provider.session_expired): the peer session
//     is gone; a fresh negotiation is required.
//   - ProviderConfigurationInvalid (provider.configuration_invalid): the
//     peer rejected the configuration; retrying cannot help.
//   - ProviderError (provider.error): any other peer-reported error.
//   - RateLimitsUpdated (provider.rate_limits_updated): current quota
//     snapshot.
//
// turn_state events
//
//   - TurnStateChanged (turn_state.changed): the turn state machine moved;
//     Reason distinguishes normal transitions from timeout fallbacks.
package events
