package winstate

// Flag is a bit in a window record's pending-work bitset, per spec.md §3
// "Flags". Grounded on the bitset-of-pending-work shape game_object.go
// expresses with a single atomic.Bool ("enabled") — generalized here to a
// full bitset since a window record has many independent pending-work
// bits that must be drained in a fixed order (spec.md §4.2).
type Flag uint32

const (
	FlagMapped Flag = 1 << iota
	FlagPixmapStale
	FlagPixmapNone
	FlagImageError
	FlagClientStale
	FlagPropertyStale
	FlagSizeStale
	FlagPositionStale
	FlagFactorChanged
)

// FlagSet is a bitset of pending Flag values.
type FlagSet uint32

// Set turns on f.
func (s *FlagSet) Set(f Flag) { *s |= FlagSet(f) }

// Clear turns off f.
func (s *FlagSet) Clear(f Flag) { *s &^= FlagSet(f) }

// Has reports whether f is set.
func (s FlagSet) Has(f Flag) bool { return s&FlagSet(f) != 0 }

// Drained reports whether every flag except FlagImageError has been
// cleared, per spec.md §3's invariant: "Derived attributes are valid only
// after all of the record's flags except image-error have been drained in
// the current frame."
func (s FlagSet) Drained() bool {
	return s&^FlagSet(FlagImageError) == 0
}
