package service

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 6, 14, 30, 0, 0, time.UTC) // 周三

func ptr(t time.Time) *time.Time { return &t }

func TestNormalizeRange_NoBounds(t *testing.T) {
	s, e := NormalizeRange(nil, nil, testNow)

	wantStart := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 6, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !s.Equal(wantStart) {
		t.Errorf("start 期望 %v, 实际 %v", wantStart, s)
	}
	if !e.Equal(wantEnd) {
		t.Errorf("end 期望 %v, 实际 %v", wantEnd, e)
	}
}

func TestNormalizeRange_SingleBound(t *testing.T) {
	day := time.Date(2024, 3, 8, 11, 15, 0, 0, time.UTC)

	s, e := NormalizeRange(ptr(day), nil, testNow)
	if s.Day() != 8 || e.Day() != 8 {
		t.Errorf("仅有 start 时应为 start 当日: %v ~ %v", s, e)
	}

	s, e = NormalizeRange(nil, ptr(day), testNow)
	if s.Day() != 8 || e.Day() != 8 {
		t.Errorf("仅有 end 时应为 end 当日: %v ~ %v", s, e)
	}
}

func TestNormalizeRange_ShortRangeSnapsToDays(t *testing.T) {
	start := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC) // 跨 3 天，不触发周对齐

	s, e := NormalizeRange(ptr(start), ptr(end), testNow)

	if s.Hour() != 0 || s.Day() != 6 {
		t.Errorf("start 应对齐当日零点, 实际 %v", s)
	}
	if e.Hour() != 23 || e.Day() != 8 {
		t.Errorf("end 应对齐当日末刻, 实际 %v", e)
	}
}

func TestNormalizeRange_WeekSnap(t *testing.T) {
	// 2024-03-06 是周三；任意覆盖 ≥5 天的区间应对齐到 03-04(周一) ~ 03-10(周日)
	start := time.Date(2024, 3, 6, 10, 45, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) // 周三~周日 = 5 天

	s, e := NormalizeRange(ptr(start), ptr(end), testNow)

	wantStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !s.Equal(wantStart) {
		t.Errorf("周对齐 start 期望 %v, 实际 %v", wantStart, s)
	}
	if !e.Equal(wantEnd) {
		t.Errorf("周对齐 end 期望 %v, 实际 %v", wantEnd, e)
	}
}

func TestNormalizeRange_WeekSnapIndependentOfTimeOfDay(t *testing.T) {
	end := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, hour := range []int{0, 8, 15, 23} {
		start := time.Date(2024, 3, 4, hour, 0, 0, 0, time.UTC)
		s, _ := NormalizeRange(ptr(start), ptr(end), testNow)
		if s.Day() != 4 || s.Hour() != 0 {
			t.Errorf("start 时刻 %d 点: 周对齐结果应与时刻无关, 实际 %v", hour, s)
		}
	}
}

func TestNormalizeRange_SundayStart(t *testing.T) {
	// start 为周日时, ISO 周的周一在 6 天前
	start := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC) // 周日
	end := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	s, _ := NormalizeRange(ptr(start), ptr(end), testNow)
	wantStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !s.Equal(wantStart) {
		t.Errorf("周日 start 的 ISO 周一期望 %v, 实际 %v", wantStart, s)
	}
}

func TestNormalizeRange_Idempotent(t *testing.T) {
	cases := []struct {
		name  string
		start *time.Time
		end   *time.Time
	}{
		{"无区间", nil, nil},
		{"单日", ptr(time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)), nil},
		{"整周", ptr(time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)), ptr(time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC))},
		{"三天", ptr(time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)), ptr(time.Date(2024, 3, 7, 18, 0, 0, 0, time.UTC))},
	}

	for _, tc := range cases {
		s1, e1 := NormalizeRange(tc.start, tc.end, testNow)
		s2, e2 := NormalizeRange(&s1, &e1, testNow)
		if !s1.Equal(s2) || !e1.Equal(e2) {
			t.Errorf("%s: 二次规范化应不变: (%v, %v) → (%v, %v)", tc.name, s1, e1, s2, e2)
		}
	}
}
