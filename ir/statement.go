package ir

// Statement is one entry of a Block. Statements order side effects and
// control flow; values live in the function's expression arena.
type Statement struct {
	Kind StatementKind
}

// StatementKind is implemented by the Stmt* types.
type StatementKind interface {
	statementKind()
}

// Block is a statement list.
type Block []Statement

// Range is the half-open handle interval [Start, End).
type Range struct {
	Start ExpressionHandle
	End   ExpressionHandle
}

// StmtEmit evaluates the expressions in Range at this point. Expressions
// that need emitting (see NeedsEmit) may only be used after their Emit;
// Rewriter regenerates these ranges when it copies a function.
type StmtEmit struct {
	Range Range
}

func (StmtEmit) statementKind() {}

// StmtBlock is a nested scope.
type StmtBlock struct {
	Block Block
}

func (StmtBlock) statementKind() {}

// StmtIf runs Accept when Condition is true and Reject otherwise.
type StmtIf struct {
	Condition ExpressionHandle
	Accept    Block
	Reject    Block
}

func (StmtIf) statementKind() {}

// StmtSwitch runs the case matching Selector. Exactly one case is the default.
type StmtSwitch struct {
	Selector ExpressionHandle
	Cases    []SwitchCase
}

func (StmtSwitch) statementKind() {}

// SwitchCase is one arm of a StmtSwitch.
type SwitchCase struct {
	Value       SwitchValue
	Body        Block
	FallThrough bool
}

// SwitchValue selects a SwitchCase.
type SwitchValue interface {
	switchValue()
}

// SwitchValueI32 matches an i32 selector.
type SwitchValueI32 int32

func (SwitchValueI32) switchValue() {}

// SwitchValueU32 matches a u32 selector.
type SwitchValueU32 uint32

func (SwitchValueU32) switchValue() {}

// SwitchValueDefault matches anything no other case does.
type SwitchValueDefault struct{}

func (SwitchValueDefault) switchValue() {}

// StmtLoop executes Body then Continuing repeatedly until a Break,
// Return or Kill, or until BreakIf evaluates true after Continuing.
type StmtLoop struct {
	Body       Block
	Continuing Block
	BreakIf    *ExpressionHandle
}

func (StmtLoop) statementKind() {}

// StmtBreak exits the innermost enclosing Loop or Switch statement.
type StmtBreak struct{}

func (StmtBreak) statementKind() {}

// StmtContinue skips to the continuing block of the innermost enclosing Loop.
type StmtContinue struct{}

func (StmtContinue) statementKind() {}

// StmtReturn leaves the function. Value is nil for functions without a
// result. Entry point transforms that rewrite results hook every return.
type StmtReturn struct {
	Value *ExpressionHandle
}

func (StmtReturn) statementKind() {}

// StmtKill discards the fragment.
type StmtKill struct{}

func (StmtKill) statementKind() {}

// StmtBarrier is a workgroup control barrier.
type StmtBarrier struct {
	Flags BarrierFlags
}

func (StmtBarrier) statementKind() {}

// BarrierFlags selects the memory a barrier orders.
type BarrierFlags uint32

const (
	BarrierStorage   BarrierFlags = 1 << 0
	BarrierWorkGroup BarrierFlags = 1 << 1
	BarrierTexture   BarrierFlags = 1 << 3
)

// StmtStore writes Value through Pointer.
type StmtStore struct {
	Pointer ExpressionHandle
	Value   ExpressionHandle
}

func (StmtStore) statementKind() {}

// StmtImageStore writes a texel of a storage image. PixelLocal emits these
// to write attachments back before a fragment entry point returns.
type StmtImageStore struct {
	Image      ExpressionHandle
	Coordinate ExpressionHandle
	ArrayIndex *ExpressionHandle
	Value      ExpressionHandle
}

func (StmtImageStore) statementKind() {}

// StmtCall calls Function. Result, when set, is the callee's ExprCallResult.
// Threaded values are appended to Arguments after the original ones.
type StmtCall struct {
	Function  FunctionHandle
	Arguments []ExpressionHandle
	Result    *ExpressionHandle
}

func (StmtCall) statementKind() {}
