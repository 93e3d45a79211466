package tracex

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestBind_部分更新(t *testing.T) {
	ctx, release := Begin(context.Background())
	defer release()

	Bind(ctx, WithRequestID("r-1"))
	Bind(ctx, WithTenantID("t-1"))
	got := Snapshot(ctx)
	if got != (Record{TenantID: "t-1", UserID: Unset, RequestID: "r-1"}) {
		t.Fatalf("期望只更新传入字段，got=%+v", got)
	}

	Bind(ctx, WithTenantID("t-1"))
	if again := Snapshot(ctx); again != got {
		t.Fatalf("期望重复 Bind 幂等，got=%+v", again)
	}
}

func TestClear_任意组合后恢复默认值(t *testing.T) {
	opts := [][]Option{
		nil,
		{WithTenantID("t")},
		{WithUserID("u")},
		{WithRequestID("r")},
		{WithTenantID("t"), WithUserID("u")},
		{WithTenantID("t"), WithUserID("u"), WithRequestID("r")},
	}
	for i, o := range opts {
		ctx, release := Begin(context.Background())
		Bind(ctx, o...)
		Clear(ctx)
		if got := Snapshot(ctx); got != Default() {
			t.Fatalf("case %d: 期望 Clear 后为默认值，got=%+v", i, got)
		}
		Clear(ctx)
		if got := Snapshot(ctx); got != Default() {
			t.Fatalf("case %d: 期望 Clear 幂等，got=%+v", i, got)
		}
		release()
	}
}

func TestSnapshot_不可变拷贝(t *testing.T) {
	ctx, release := Begin(context.Background())
	defer release()
	Bind(ctx, WithUserID("u-1"))

	snap := Snapshot(ctx)
	snap.UserID = "mutated"
	if got := Snapshot(ctx).UserID; got != "u-1" {
		t.Fatalf("期望修改快照不影响记录，got=%q", got)
	}
}

func TestSnapshot_无作用域返回默认值(t *testing.T) {
	ctx := context.Background()
	Bind(ctx, WithRequestID("ignored"))
	if got := Snapshot(ctx); got != Default() {
		t.Fatalf("期望无作用域时返回默认值，got=%+v", got)
	}
	if InScope(ctx) {
		t.Fatalf("期望 InScope==false")
	}
}

func TestScope_panic时也会清空(t *testing.T) {
	var inner context.Context
	func() {
		defer func() { _ = recover() }()
		_ = Scope(context.Background(), func(ctx context.Context) error {
			inner = ctx
			Bind(ctx, WithRequestID("r-panic"))
			panic("boom")
		})
	}()
	if got := Snapshot(inner); got != Default() {
		t.Fatalf("期望 panic 退出后记录被清空，got=%+v", got)
	}
}

func TestConcurrentUnits_互不可见(t *testing.T) {
	const n = 64
	parent := context.Background()
	var wg sync.WaitGroup
	errs := make(chan string, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reqID := fmt.Sprintf("req-%d", i)
			_ = Scope(parent, func(ctx context.Context) error {
				Bind(ctx, WithRequestID(reqID), WithTenantID(fmt.Sprintf("tenant-%d", i)))
				<-start
				for j := 0; j < 100; j++ {
					got := Snapshot(ctx)
					if got.RequestID != reqID || got.TenantID != fmt.Sprintf("tenant-%d", i) {
						errs <- fmt.Sprintf("unit %d 读到了 %+v", i, got)
						return nil
					}
				}
				return nil
			})
		}(i)
	}
	close(start)
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
	if got := Snapshot(parent); got != Default() {
		t.Fatalf("期望父 ctx 不受影响，got=%+v", got)
	}
}

func TestNewRequestID_唯一(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == "" || a == b {
		t.Fatalf("期望生成不同的非空 ID，a=%q b=%q", a, b)
	}
}
