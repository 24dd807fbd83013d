package signing

import (
	"slices"
	"sync"

	"WalletCore/internal/factors"
)

// inputState is how a factor source relates to the outstanding petitions.
type inputState uint8

const (
	// inputNotNeeded sources only back payloads that need nothing more.
	inputNotNeeded inputState = iota

	// inputRelevant sources should be asked to sign.
	inputRelevant

	// inputIrrelevant sources only back payloads that already failed.
	inputIrrelevant
)

// petitions is the petition tree of one collector run.
type petitions[S Signable] struct {
	mu        sync.RWMutex                     // mu guards every petition in txs
	txs       []*PetitionForTransaction[S]     // txs holds one petition per signable
	byFactor  map[factors.FactorSourceID][]int // byFactor maps a source to the txs referencing it
	neglected []NeglectedFactor                // neglected lists neglected sources in order
	seen      map[factors.FactorSourceID]bool  // seen marks sources already in neglected
}

// newPetitions indexes the petitions by factor source.
func newPetitions[S Signable](txs []*PetitionForTransaction[S]) *petitions[S] {
	p := &petitions[S]{
		txs:      txs,
		byFactor: make(map[factors.FactorSourceID][]int),
		seen:     make(map[factors.FactorSourceID]bool),
	}

	for i, tx := range txs {
		for _, id := range tx.FactorSourceIDs() {
			p.byFactor[id] = append(p.byFactor[id], i)
		}
	}

	return p
}

// factorSourceIDs returns every referenced factor source in order of first appearance.
func (p *petitions[S]) factorSourceIDs() []factors.FactorSourceID {
	var ids []factors.FactorSourceID
	seen := make(map[factors.FactorSourceID]bool)

	for _, tx := range p.txs {
		for _, id := range tx.FactorSourceIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	return ids
}

// shouldFinishEarly reports whether asking more factor sources is pointless or unwanted.
func (p *petitions[S]) shouldFinishEarly(strategy FinishEarlyStrategy) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	allSuccess, anyFail, allFinished := true, false, true

	for _, tx := range p.txs {
		switch tx.Status() {
		case Success:
		case Fail:
			allSuccess = false
			anyFail = true
		default:
			allSuccess = false
			allFinished = false
		}
	}

	switch {
	case allFinished && anyFail:
		return true
	case allSuccess:
		return strategy.WhenAllValid == FinishEarly
	case anyFail:
		return strategy.WhenSomeInvalid == FinishEarly
	default:
		return false
	}
}

// inputFor builds the request input of a factor source.
// Pending payloads are included, and succeeded ones too when includeSucceeded is set.
func (p *petitions[S]) inputFor(id factors.FactorSourceID, includeSucceeded bool) (PerFactorSourceInput[S], inputState) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	input := PerFactorSourceInput[S]{FactorSourceID: id}
	allFailed := true

	for _, idx := range p.byFactor[id] {
		tx := p.txs[idx]

		status := tx.Status()
		if status != Fail {
			allFailed = false
		}

		if status == Fail || (status == Success && !includeSucceeded) {
			continue
		}

		input.Transactions = append(input.Transactions, TransactionSignRequestInput[S]{
			Payload:              tx.Signable(),
			PayloadID:            tx.PayloadID(),
			FactorSourceID:       id,
			OwnedFactorInstances: tx.InstancesOf(id),
		})

		if entities := tx.EntitiesInvalidIfNeglected(id); len(entities) > 0 {
			input.InvalidIfNeglected = append(input.InvalidIfNeglected, InvalidTransactionIfNeglected{
				PayloadID: tx.PayloadID(),
				Entities:  entities,
			})
		}
	}

	switch {
	case len(input.Transactions) > 0:
		return input, inputRelevant
	case allFailed && len(p.byFactor[id]) > 0:
		return input, inputIrrelevant
	default:
		return input, inputNotNeeded
	}
}

// addSignatures records verified signatures of one factor source.
func (p *petitions[S]) addSignatures(sigs []HDSignature) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sig := range sigs {
		for _, idx := range p.byFactor[sig.FactorSourceID()] {
			if tx := p.txs[idx]; tx.PayloadID() == sig.Payload {
				tx.AddSignature(sig)
			}
		}
	}
}

// neglect records the neglect in the petitions of the asked payloads.
// With no payloads given, every petition referencing the factor source is affected.
func (p *petitions[S]) neglect(n NeglectedFactor, asked []PayloadID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, idx := range p.byFactor[n.FactorSourceID] {
		tx := p.txs[idx]
		if asked != nil && !slices.Contains(asked, tx.PayloadID()) {
			continue
		}
		tx.Neglect(n)
	}

	if !p.seen[n.FactorSourceID] {
		p.seen[n.FactorSourceID] = true
		p.neglected = append(p.neglected, n)
	}
}

// outcome classifies every payload. Payloads still pending count as failed.
func (p *petitions[S]) outcome() SignaturesOutcome[S] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out SignaturesOutcome[S]

	for _, tx := range p.txs {
		po := PetitionOutcome[S]{
			Signable:   tx.Signable(),
			PayloadID:  tx.PayloadID(),
			Signatures: tx.Signatures(),
			Neglected:  tx.NeglectedFactors(),
		}

		if tx.Status() == Success {
			out.Successful = append(out.Successful, po)
		} else {
			out.Failed = append(out.Failed, po)
		}
	}

	out.Neglected = append([]NeglectedFactor(nil), p.neglected...)

	return out
}
