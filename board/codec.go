package board

import (
	"encoding/binary"
	"fmt"

	"crowd-chess/chesserr"
	"crowd-chess/ledger"
	"crowd-chess/oracle"
	"crowd-chess/tally"
)

// Encode serializes b into a freshly allocated buffer of b.Layout().Size() bytes.
//
// Layout:
//
//	header | tally len u16 | capacity × {from,to,promo,count u32} |
//	spaces × {gen,side} | spaces × {gen,ply u16,from,to,promo}
//
// All integers are little-endian.
func (b *Board) Encode() ([]byte, error) {
	buf := make([]byte, b.layout.Size())
	if err := b.EncodeInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (b *Board) MarshalBinary() ([]byte, error) { return b.Encode() }

// EncodeInto writes b over buf, which must be exactly b.Layout().Size() long.
func (b *Board) EncodeInto(buf []byte) error {
	l := b.layout
	if len(buf) != l.Size() {
		return fmt.Errorf("encode board: buffer is %d bytes, layout needs %d", len(buf), l.Size())
	}
	if b.Tally.Cap() != l.TallyCapacity || b.Ledger.Spaces() != l.Spaces() {
		return fmt.Errorf("encode board: arena does not match layout: %w", chesserr.ErrCorruptBoard)
	}
	le := binary.LittleEndian

	buf[offVersion] = layoutVersion
	copy(buf[offOwner:], b.Owner[:])
	le.PutUint64(buf[offNX:], uint64(b.Region.NX))
	le.PutUint64(buf[offNY:], uint64(b.Region.NY))
	buf[offGeneration] = b.Ledger.Generation()
	if err := oracle.EncodePosition(buf[offPosition:], &b.Position); err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	putPlayer(buf[offWhite:], b.White)
	putPlayer(buf[offBlack:], b.Black)
	le.PutUint32(buf[offRegWhite:], b.RegisteredWhite)
	le.PutUint32(buf[offRegBlack:], b.RegisteredBlack)
	le.PutUint64(buf[offRegisterInterval:], b.RegisterInterval)
	le.PutUint64(buf[offMoveInterval:], b.MoveInterval)
	le.PutUint64(buf[offRegisterDeadline:], b.RegisterDeadline)
	le.PutUint64(buf[offMoveDeadline:], b.MoveDeadline)
	buf[offPhase] = byte(b.Phase)
	buf[offResult] = byte(b.Result)

	off := l.TallyOffset()
	le.PutUint16(buf[off:], uint16(b.Tally.Len()))
	off += TallyLenSize
	for _, e := range b.Tally.Slots() {
		putMove(buf[off:], e.Move)
		le.PutUint32(buf[off+3:], e.Count)
		off += TallyEntrySize
	}
	for _, r := range b.Ledger.Registrations() {
		buf[off] = r.Generation
		buf[off+1] = byte(r.Side)
		off += RegistrationSize
	}
	for _, v := range b.Ledger.Votes() {
		buf[off] = v.Generation
		le.PutUint16(buf[off+1:], v.Ply)
		putMove(buf[off+3:], v.Move)
		off += VoteSize
	}
	return nil
}

func putPlayer(dst []byte, p Player) {
	dst[0] = byte(p.Mode)
	copy(dst[1:33], p.Key[:])
	binary.LittleEndian.PutUint16(dst[33:], p.MinRegistrants)
}

func putMove(dst []byte, m oracle.Move) {
	dst[0] = byte(m.From)
	dst[1] = byte(m.To)
	dst[2] = byte(m.Promotion)
}

func readMove(src []byte) oracle.Move {
	return oracle.Move{From: oracle.Square(src[0]), To: oracle.Square(src[1]), Promotion: oracle.PieceType(src[2])}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("decode board: "+format+": %w", append(args, chesserr.ErrCorruptBoard)...)
}

// Decode parses buf under layout l. A buffer whose version byte is zero has
// never been written and yields ErrUninitializedBoard.
func Decode(l Layout, buf []byte) (*Board, error) {
	if len(buf) == 0 || buf[offVersion] == 0 {
		return nil, fmt.Errorf("decode board: %w", chesserr.ErrUninitializedBoard)
	}
	if len(buf) != l.Size() {
		return nil, corrupt("buffer is %d bytes, layout needs %d", len(buf), l.Size())
	}
	if buf[offVersion] != layoutVersion {
		return nil, corrupt("unknown layout version %d", buf[offVersion])
	}
	le := binary.LittleEndian

	b := &Board{
		Tally:  tally.New(l.TallyCapacity),
		Ledger: ledger.New(l.Spaces()),
		layout: l,
	}
	copy(b.Owner[:], buf[offOwner:offOwner+32])
	b.Region = Region{NX: int64(le.Uint64(buf[offNX:])), NY: int64(le.Uint64(buf[offNY:]))}
	b.Ledger.SetGeneration(buf[offGeneration])

	pos, err := oracle.DecodePosition(buf[offPosition : offPosition+oracle.PositionSize])
	if err != nil {
		return nil, corrupt("position: %v", err)
	}
	b.Position = pos

	if b.White, err = readPlayer(buf[offWhite:]); err != nil {
		return nil, corrupt("white player: %v", err)
	}
	if b.Black, err = readPlayer(buf[offBlack:]); err != nil {
		return nil, corrupt("black player: %v", err)
	}
	b.RegisteredWhite = le.Uint32(buf[offRegWhite:])
	b.RegisteredBlack = le.Uint32(buf[offRegBlack:])
	b.RegisterInterval = le.Uint64(buf[offRegisterInterval:])
	b.MoveInterval = le.Uint64(buf[offMoveInterval:])
	b.RegisterDeadline = le.Uint64(buf[offRegisterDeadline:])
	b.MoveDeadline = le.Uint64(buf[offMoveDeadline:])

	b.Phase = Phase(buf[offPhase])
	if b.Phase > PhaseActive {
		return nil, corrupt("phase %d", b.Phase)
	}
	b.Result = Result(buf[offResult])
	if b.Result > ResultBlackWin {
		return nil, corrupt("result %d", b.Result)
	}
	if b.Result != ResultNone && b.Phase != PhaseInactive {
		return nil, corrupt("result %s on a %s board", b.Result, b.Phase)
	}

	off := l.TallyOffset()
	if err := b.Tally.SetLen(int(le.Uint16(buf[off:]))); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	off += TallyLenSize
	slots := b.Tally.Slots()
	for i := range slots {
		slots[i] = tally.Entry{Move: readMove(buf[off:]), Count: le.Uint32(buf[off+3:])}
		off += TallyEntrySize
	}
	regs := b.Ledger.Registrations()
	for i := range regs {
		side := ledger.Side(buf[off+1])
		if side > ledger.SideBlack {
			return nil, corrupt("registration slot %d side %d", i, side)
		}
		regs[i] = ledger.Registration{Generation: buf[off], Side: side}
		off += RegistrationSize
	}
	votes := b.Ledger.Votes()
	for i := range votes {
		votes[i] = ledger.VoteRecord{Generation: buf[off], Ply: le.Uint16(buf[off+1:]), Move: readMove(buf[off+3:])}
		off += VoteSize
	}
	return b, nil
}

func readPlayer(src []byte) (Player, error) {
	var p Player
	p.Mode = PlayerMode(src[0])
	if p.Mode > ModePubkey {
		return p, fmt.Errorf("mode %d", src[0])
	}
	copy(p.Key[:], src[1:33])
	p.MinRegistrants = binary.LittleEndian.Uint16(src[33:])
	return p, nil
}
