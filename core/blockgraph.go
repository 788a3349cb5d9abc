package core

// BlockGraph is a read-only projection over the external block store, as
// specified by §2.2: parents, height, attached QC, delivered-set
// membership. The core also interns blocks it creates or learns about
// (§4.2, §4.7), so this type additionally plays the role of "the external
// storage" for a self-contained, runnable node — a production deployment
// may instead back Get/Put with a real persistent store behind the same
// narrow interface.
type BlockGraph struct {
	blocks    map[Hash]*Block
	delivered map[Hash]bool
	children  map[Hash]int // not maintained; markDelivered updates tails directly
	tails     map[Hash]bool
}

func newBlockGraph() *BlockGraph {
	return &BlockGraph{
		blocks:    make(map[Hash]*Block),
		delivered: make(map[Hash]bool),
		children:  make(map[Hash]int),
		tails:     make(map[Hash]bool),
	}
}

// Get returns the block for hash h, if known (delivered or not).
func (g *BlockGraph) Get(h Hash) (*Block, bool) {
	b, ok := g.blocks[h]
	return b, ok
}

// Delivered reports whether h and its transitive dependencies are present.
func (g *BlockGraph) Delivered(h Hash) bool {
	return g.delivered[h]
}

// Intern stores a block the core has created or accepted, without marking
// it delivered. Safe to call twice; the second call is a no-op.
func (g *BlockGraph) Intern(b *Block) {
	if _, ok := g.blocks[b.Hash]; ok {
		return
	}
	g.blocks[b.Hash] = b
}

// markDelivered records h as delivered, updates the tails set: h joins
// tails, and its true parent (Parents[0]) is removed from tails. Uncle
// parents (Parents[1:]) are left in tails.
func (g *BlockGraph) markDelivered(b *Block) {
	if g.delivered[b.Hash] {
		return
	}
	g.delivered[b.Hash] = true
	g.tails[b.Hash] = true
	if len(b.Parents) > 0 {
		parent := b.Parents[0]
		delete(g.tails, parent)
	}
}

// Tails returns the current set of known tip blocks.
func (g *BlockGraph) Tails() []Hash {
	out := make([]Hash, 0, len(g.tails))
	for h := range g.tails {
		out = append(out, h)
	}
	return out
}

// IsDescendant reports whether a (delivered) is a descendant of `of` by
// walking true-parent links. Returns true if a == of.
func (g *BlockGraph) IsDescendant(a, of Hash) bool {
	cur := a
	for {
		if cur == of {
			return true
		}
		blk, ok := g.blocks[cur]
		if !ok || len(blk.Parents) == 0 {
			return false
		}
		if blk.Height == 0 {
			return false
		}
		cur = blk.Parents[0]
	}
}

// prune drops every known block strictly below minHeight, along with its
// delivered and tails records. Referenced-but-pruned hashes simply vanish
// from Get.
func (g *BlockGraph) prune(minHeight uint32) {
	for h, b := range g.blocks {
		if b.Height < minHeight {
			delete(g.blocks, h)
			delete(g.delivered, h)
			delete(g.tails, h)
		}
	}
}
