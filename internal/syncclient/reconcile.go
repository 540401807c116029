package syncclient

import "github.com/kaito/tubegrab/internal/domain"

// Reconcile merges the last push-derived snapshot with a fresh poll
// result. The polling source is the ground truth when the two disagree,
// because the push channel has weaker delivery guarantees: a terminal
// polled status is always adopted, even if the push channel never
// delivered it. A push snapshot is kept only when it is strictly newer
// than a non-terminal poll, so in-flight progress frames are not thrown
// away by a lagging poll.
func Reconcile(push, poll *domain.StatusSnapshot) *domain.StatusSnapshot {
	if poll == nil {
		return push
	}
	if push == nil {
		return poll
	}
	if poll.Status.IsTerminal() {
		return poll
	}
	if push.UpdatedAt.After(poll.UpdatedAt) {
		return push
	}
	return poll
}
