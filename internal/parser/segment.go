package parser

import "strings"

// Block is a run of consecutive normalized lines believed to describe one
// transaction.
type Block struct {
	Lines []string
}

// Text joins the block's lines with single spaces.
func (b Block) Text() string {
	return strings.Join(b.Lines, " ")
}

type segmentState int

const (
	stateAccumulating segmentState = iota
	stateFlushing
)

// segmenter is a two-state machine: it accumulates lines into the current
// block and flushes when a trigger line or a separator arrives. A trigger
// line always opens the block it triggers.
type segmenter struct {
	rules   *Rules
	state   segmentState
	current []string
	blocks  []Block
}

// segmentBlocks partitions normalized lines into transaction blocks in a
// single greedy pass without lookahead.
func segmentBlocks(rules *Rules, lines []string) []Block {
	s := &segmenter{rules: rules, state: stateAccumulating}
	for _, line := range lines {
		s.feed(line)
	}
	s.flush()
	return s.blocks
}

func (s *segmenter) feed(line string) {
	if s.rules.Separator.MatchString(line) {
		s.state = stateFlushing
		s.step()
		return
	}
	if s.isTrigger(line) && len(s.current) > 0 {
		s.state = stateFlushing
		s.step()
	}
	s.current = append(s.current, line)
}

// step moves a flushing machine back to accumulating.
func (s *segmenter) step() {
	if s.state == stateFlushing {
		s.flush()
		s.state = stateAccumulating
	}
}

func (s *segmenter) flush() {
	if len(s.current) == 0 {
		return
	}
	s.blocks = append(s.blocks, Block{Lines: s.current})
	s.current = nil
}

func (s *segmenter) isTrigger(line string) bool {
	lower := strings.ToLower(line)
	for _, trigger := range s.rules.BlockTriggers {
		if !strings.Contains(lower, trigger) {
			continue
		}
		if trigger == "debited" && strings.Contains(lower, "debited from") {
			continue
		}
		return true
	}
	return false
}
