package chain

import "github.com/djkazic/rblocknode/internal/rhash"

// merkleRoot computes the root over a transaction set using a pairwise
// pop-pop-push queue: the leaf set is duplicated once at the very start if
// it has an odd count, then adjacent hashes are combined until one remains.
// Unlike a level-synchronized tree, the queue is never re-padded at
// subsequent levels — an odd count partway through is simply carried
// forward rather than duplicated again.
func merkleRoot(transactions []Transaction) string {
	if len(transactions) == 0 {
		return ""
	}

	queue := make([]string, 0, len(transactions)+1)
	for _, tx := range transactions {
		queue = append(queue, tx.Hash())
	}

	if len(queue)%2 == 1 {
		queue = append(queue, queue[len(queue)-1])
	}

	for len(queue) > 1 {
		first, second := queue[0], queue[1]
		queue = queue[2:]
		queue = append(queue, rhash.Sum256(first+second))
	}

	return queue[0]
}
