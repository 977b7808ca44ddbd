package reconcile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Scope 相似名稱提示的類別
type Scope string

const (
	ScopeSupplier Scope = "supplier"
	ScopeProduct  Scope = "product"
)

// Prompt 一次相似名稱確認請求
type Prompt struct {
	Scope        Scope  `json:"scope"`
	Incoming     string `json:"incoming"`     // 匯入檔中的名稱
	Existing     string `json:"existing"`     // 目錄中相似的名稱
	ExistingID   string `json:"existingId"`   // 目錄中相似實體的 ID
	SupplierName string `json:"supplierName"` // 產品提示所屬的供應商
}

// Decision 對提示的回答
type Decision struct {
	UseExisting bool `json:"useExisting"`
	ApplyToAll  bool `json:"applyToAll"` // 本次匯入中同類別的後續提示沿用此答案
}

// Decider 相似名稱的決策提供者
type Decider interface {
	Decide(ctx context.Context, p Prompt) (Decision, error)
}

// DeciderFunc 將函式轉為 Decider
type DeciderFunc func(ctx context.Context, p Prompt) (Decision, error)

// Decide 實現 Decider 介面
func (f DeciderFunc) Decide(ctx context.Context, p Prompt) (Decision, error) {
	return f(ctx, p)
}

// Policy 自動決策策略
type Policy string

const (
	PolicyAsk    Policy = "ask"
	PolicyMerge  Policy = "merge"
	PolicyCreate Policy = "new"
)

// ParsePolicy 解析策略名稱
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyAsk:
		return PolicyAsk, nil
	case PolicyMerge, "existing":
		return PolicyMerge, nil
	case PolicyCreate, "create":
		return PolicyCreate, nil
	default:
		return "", fmt.Errorf("unknown policy %q (expected ask, merge or new)", s)
	}
}

// PolicyDecider 固定回答的決策者，用於無人值守匯入與測試
type PolicyDecider struct {
	UseExisting bool
}

// AlwaysMerge 一律沿用既有實體
func AlwaysMerge() PolicyDecider { return PolicyDecider{UseExisting: true} }

// AlwaysCreate 一律建立新實體
func AlwaysCreate() PolicyDecider { return PolicyDecider{UseExisting: false} }

// Decide 實現 Decider 介面；ApplyToAll 恆為 false，每次提示都會被計數
func (d PolicyDecider) Decide(ctx context.Context, _ Prompt) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	return Decision{UseExisting: d.UseExisting}, nil
}

// InteractiveDecider 在終端機上詢問兩個問題：沿用或新建，以及是否套用到全部
type InteractiveDecider struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	out     io.Writer
}

// NewInteractiveDecider 創建終端機決策者
func NewInteractiveDecider(in io.Reader, out io.Writer) *InteractiveDecider {
	return &InteractiveDecider{scanner: bufio.NewScanner(in), out: out}
}

// Decide 實現 Decider 介面
func (d *InteractiveDecider) Decide(ctx context.Context, p Prompt) (Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	var question string
	switch p.Scope {
	case ScopeProduct:
		question = fmt.Sprintf("Product %q (supplier %q) looks like existing %q.", p.Incoming, p.SupplierName, p.Existing)
	default:
		question = fmt.Sprintf("Supplier %q looks like existing %q.", p.Incoming, p.Existing)
	}

	useExisting, err := d.ask(question+" Use the existing one? [Y/n] ", true)
	if err != nil {
		return Decision{}, err
	}
	applyToAll, err := d.ask(fmt.Sprintf("Apply this choice to all remaining similar %ss in this import? [y/N] ", p.Scope), false)
	if err != nil {
		return Decision{}, err
	}
	return Decision{UseExisting: useExisting, ApplyToAll: applyToAll}, nil
}

func (d *InteractiveDecider) ask(question string, def bool) (bool, error) {
	for {
		fmt.Fprint(d.out, question)
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return false, fmt.Errorf("failed to read answer: %w", err)
			}
			return false, io.ErrUnexpectedEOF
		}
		switch strings.ToLower(strings.TrimSpace(d.scanner.Text())) {
		case "":
			return def, nil
		case "y", "yes", "o", "oui", "s", "si", "e", "existing":
			return true, nil
		case "n", "no", "non", "new":
			return false, nil
		}
		fmt.Fprintln(d.out, "Please answer y or n.")
	}
}
