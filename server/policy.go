package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// DecisionSource says where a decision came from
type DecisionSource string

const (
	SourceExploration DecisionSource = "exploration"
	SourceOracle      DecisionSource = "oracle"
	SourceFallback    DecisionSource = "fallback"
	SourceTactical    DecisionSource = "tactical"
	SourceSpecial     DecisionSource = "special"
	SourcePattern     DecisionSource = "pattern"
	SourceForced      DecisionSource = "forced"
	SourceScripted    DecisionSource = "scripted"
)

// Decision is one chosen action, or a combo, for one agent
type Decision struct {
	Agent     *Agent
	Action    Action
	Combo     []Action
	Source    DecisionSource
	Situation Situation
	Reply     string // raw oracle text, if any
}

type oracleReply struct {
	agent     *Agent
	token     Token
	situation Situation
	text      string
	err       error
}

// Policy picks actions by exploration or by asking the oracle. Oracle calls run
// on their own goroutines; their answers are picked up by Collect on a later
// tick so the simulation never waits on the network.
type Policy struct {
	vocab   Vocabulary // parse priority
	random  Vocabulary // exploration and fallback set
	oracle  Oracle
	rng     RNG
	timeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	replies  chan oracleReply
	inflight sync.WaitGroup
}

// NewPolicy creates a policy. oracle may be nil, in which case every exploit
// decision falls back to a random action.
func NewPolicy(vocab, random Vocabulary, oracle Oracle, rng RNG, timeout time.Duration) *Policy {
	if len(random) == 0 {
		random = vocab
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Policy{
		vocab:   vocab,
		random:  random,
		oracle:  oracle,
		rng:     rng,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		replies: make(chan oracleReply, 16),
	}
}

// Decide runs at a decision tick. It returns a decision at once when exploring
// or when no oracle is configured. Otherwise it sends an oracle request, marks
// the agent as thinking and returns false; the answer comes back via Collect.
// Busy or already thinking agents get nothing.
func (p *Policy) Decide(a *Agent, sit Situation) (Decision, bool) {
	if !a.Alive || a.Busy() || a.Thinking {
		return Decision{}, false
	}
	if p.rng.Float64() < a.Learner.ExplorationRate() {
		return Decision{Agent: a, Action: p.random.Random(p.rng), Source: SourceExploration, Situation: sit}, true
	}
	if p.oracle == nil {
		return p.Fallback(a, sit), true
	}
	p.request(a, sit)
	return Decision{}, false
}

// Fallback is a uniformly random action from the exploration set
func (p *Policy) Fallback(a *Agent, sit Situation) Decision {
	return Decision{Agent: a, Action: p.random.Random(p.rng), Source: SourceFallback, Situation: sit}
}

func (p *Policy) request(a *Agent, sit Situation) {
	a.Thinking = true
	a.ThinkingSince = sit.Time
	token := a.Gen.Token()
	prompt := sit.Describe(p.vocab)

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		text, err := p.oracle.Decide(ctx, prompt)
		cancel()
		select {
		case p.replies <- oracleReply{agent: a, token: token, situation: sit, text: text, err: err}:
		case <-p.ctx.Done():
		}
	}()
}

// Collect drains the replies that have arrived since the last tick. Replies
// issued under an older agent generation are dropped. Failed or unreadable
// replies become fallback decisions.
func (p *Policy) Collect() []Decision {
	var out []Decision
	for {
		select {
		case r := <-p.replies:
			if d, ok := p.resolve(r); ok {
				out = append(out, d)
			}
		default:
			return out
		}
	}
}

func (p *Policy) resolve(r oracleReply) (Decision, bool) {
	a := r.agent
	if !r.token.Valid() {
		log.Printf("[policy] %s: dropping stale oracle reply", a.Name)
		return Decision{}, false
	}
	a.Thinking = false
	if r.err != nil {
		log.Printf("[policy] %s: oracle failed, acting randomly: %v", a.Name, r.err)
		return p.Fallback(a, r.situation), true
	}
	act, ok := ParseOracleReply(r.text, p.vocab)
	if !ok {
		log.Printf("[policy] %s: no action in oracle reply %q", a.Name, truncate(r.text, 80))
		d := p.Fallback(a, r.situation)
		d.Reply = r.text
		return d, true
	}
	return Decision{Agent: a, Action: act, Source: SourceOracle, Situation: r.situation, Reply: r.text}, true
}

// Close cancels outstanding oracle requests and waits for their goroutines
func (p *Policy) Close() {
	p.cancel()
	p.inflight.Wait()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
