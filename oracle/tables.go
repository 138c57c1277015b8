package oracle

import "math/bits"

// Precomputed attack masks for knights and kings from each square.
var knightMoves [64]uint64
var kingMoves [64]uint64

// pawnAttacks[color][sq] gives the squares a pawn of 'color' attacks from 'sq'.
var pawnAttacks [2][64]uint64

// Slider rays excluding the origin square.
// Directions: 0=N 1=S 2=E 3=W (orthogonal), 4=NE 5=NW 6=SE 7=SW (diagonal).
var rays [64][8]uint64

// increasing[d] is true when squares along direction d have growing indices,
// so the nearest blocker is the least significant bit.
var increasing = [8]bool{true, false, true, false, true, true, false, false}

var dirStep = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// between[a][b] holds the squares strictly between a and b when they share a
// rank, file or diagonal, and 0 otherwise.
var between [64][64]uint64

// lineDir[a][b] is the direction from a towards b, or -1 when not aligned.
var lineDir [64][64]int8

var rankMask [8]uint64

func init() {
	initLeaperTables()
	initRays()
}

func initLeaperTables() {
	knightOffsets := [8][2]int{
		{2, 1}, {2, -1}, {-2, 1}, {-2, -1},
		{1, 2}, {1, -2}, {-1, 2}, {-1, -2},
	}
	kingOffsets := [8][2]int{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	}
	for sq := 0; sq < 64; sq++ {
		file := sq % 8
		rank := sq / 8
		rankMask[rank] |= uint64(1) << uint(sq)
		for _, off := range knightOffsets {
			if t, ok := offsetSquare(rank, file, off); ok {
				knightMoves[sq] |= uint64(1) << t
			}
		}
		for _, off := range kingOffsets {
			if t, ok := offsetSquare(rank, file, off); ok {
				kingMoves[sq] |= uint64(1) << t
			}
		}
		if rank < 7 {
			if file > 0 {
				pawnAttacks[White][sq] |= uint64(1) << uint((rank+1)*8+file-1)
			}
			if file < 7 {
				pawnAttacks[White][sq] |= uint64(1) << uint((rank+1)*8+file+1)
			}
		}
		if rank > 0 {
			if file > 0 {
				pawnAttacks[Black][sq] |= uint64(1) << uint((rank-1)*8+file-1)
			}
			if file < 7 {
				pawnAttacks[Black][sq] |= uint64(1) << uint((rank-1)*8+file+1)
			}
		}
	}
}

func offsetSquare(rank, file int, off [2]int) (uint, bool) {
	r, f := rank+off[0], file+off[1]
	if r < 0 || r > 7 || f < 0 || f > 7 {
		return 0, false
	}
	return uint(r*8 + f), true
}

func initRays() {
	for a := 0; a < 64; a++ {
		for b := 0; b < 64; b++ {
			lineDir[a][b] = -1
		}
	}
	for sq := 0; sq < 64; sq++ {
		rank, file := sq/8, sq%8
		for d, step := range dirStep {
			var ray uint64
			for r, f := rank+step[0], file+step[1]; r >= 0 && r < 8 && f >= 0 && f < 8; r, f = r+step[0], f+step[1] {
				ray |= uint64(1) << uint(r*8+f)
			}
			rays[sq][d] = ray
		}
	}
	for a := 0; a < 64; a++ {
		for d := 0; d < 8; d++ {
			for t := rays[a][d]; t != 0; {
				b := bits.TrailingZeros64(t)
				t &= t - 1
				// rays[a][d] minus everything from b onwards leaves the gap.
				between[a][b] = rays[a][d] &^ rays[b][d] &^ (uint64(1) << uint(b))
				lineDir[a][b] = int8(d)
			}
		}
	}
}

// nearest returns the first blocker along direction d.
func nearest(blockers uint64, d int) Square {
	if increasing[d] {
		return Square(bits.TrailingZeros64(blockers))
	}
	return Square(63 - bits.LeadingZeros64(blockers))
}

// slide returns the attack set along one direction, stopping at the first blocker.
func slide(sq Square, d int, occ uint64) uint64 {
	ray := rays[sq][d]
	if blockers := ray & occ; blockers != 0 {
		ray &^= rays[nearest(blockers, d)][d]
	}
	return ray
}

// rookAttacks returns rook attacks from sq given occupancy.
func rookAttacks(sq Square, occ uint64) uint64 {
	return slide(sq, 0, occ) | slide(sq, 1, occ) | slide(sq, 2, occ) | slide(sq, 3, occ)
}

// bishopAttacks returns bishop attacks from sq given occupancy.
func bishopAttacks(sq Square, occ uint64) uint64 {
	return slide(sq, 4, occ) | slide(sq, 5, occ) | slide(sq, 6, occ) | slide(sq, 7, occ)
}
