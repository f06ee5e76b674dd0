package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

func genIR(t *testing.T, src string) string {
	t.Helper()
	out, err := NewLLVMBackend().Generate(analyzed(t, src), "test")
	be.Err(t, err, nil)
	return out
}

func TestIRHelloProgram(t *testing.T) {
	got := genIR(t, `def main() { println(42); }`)
	want := `; ModuleID = 'test'
target datalayout = "e-m:w-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"
target triple = "x86_64-pc-windows-msvc"

; External function declarations
declare i32 @printf(i8*, ...)
declare i32 @puts(i8*)
declare void @llvm.memcpy.p0i8.p0i8.i64(i8*, i8*, i64, i1)

; String constants
@.str = private unnamed_addr constant [4 x i8] c"%s\0A\00", align 1
@.str.1 = private unnamed_addr constant [3 x i8] c"%s\00", align 1
@.str.2 = private unnamed_addr constant [4 x i8] c"%d\0A\00", align 1
@.str.3 = private unnamed_addr constant [3 x i8] c"%d\00", align 1
@.str.4 = private unnamed_addr constant [4 x i8] c"%f\0A\00", align 1
@.str.5 = private unnamed_addr constant [3 x i8] c"%f\00", align 1
@.str.bool_true = private unnamed_addr constant [5 x i8] c"true\00", align 1
@.str.bool_false = private unnamed_addr constant [6 x i8] c"false\00", align 1

define void @main() {
entry:
  call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str.2, i32 0, i32 0), i64 42)
  ret void
}

`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestIRUserStringsNumberedAfterFormats(t *testing.T) {
	got := genIR(t, `def main() { println("hi"); print("yo"); }`)
	be.True(t, strings.Contains(got,
		`@.str.6 = private unnamed_addr constant [3 x i8] c"hi\00", align 1`))
	be.True(t, strings.Contains(got,
		`@.str.7 = private unnamed_addr constant [3 x i8] c"yo\00", align 1`))
	// println uses the newline format, print the bare one.
	be.True(t, strings.Contains(got,
		"@printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str, i32 0, i32 0), i8* getelementptr inbounds ([3 x i8], [3 x i8]* @.str.6, i32 0, i32 0))"))
	be.True(t, strings.Contains(got,
		"@printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str.1, i32 0, i32 0), i8* getelementptr inbounds ([3 x i8], [3 x i8]* @.str.7, i32 0, i32 0))"))
}

func TestIRWhileLoop(t *testing.T) {
	got := genIR(t, `
def main() {
    store i = 0;
    while (i < 3) {
        i = i + 1;
    }
}
`)
	want := `define void @main() {
entry:
  %i = alloca i64, align 8
  store i64 0, i64* %i, align 8
  br label %label0
label0:
  %0 = load i64, i64* %i, align 8
  %1 = icmp slt i64 %0, 3
  br i1 %1, label %label1, label %label2
label1:
  %2 = load i64, i64* %i, align 8
  %3 = add i64 %2, 1
  store i64 %3, i64* %i, align 8
  br label %label0
label2:
  ret void
}
`
	be.True(t, strings.Contains(got, want))
}

func TestIRNestedLoopBreakTargets(t *testing.T) {
	got := genIR(t, `
def main() {
    while (true) {
        while (true) {
            break;
        }
        break;
    }
}
`)
	// The inner loop allocates labels 3..5, the outer 0..2.
	be.True(t, strings.Contains(got, "  br label %label5\n"))
	be.True(t, strings.Contains(got, "  br label %label2\n"))
}

func TestIRBreakOutsideLoop(t *testing.T) {
	_, err := NewLLVMBackend().Generate(analyzed(t, `def main() { break; }`), "test")
	be.True(t, err != nil)
	be.Equal(t, err.Error(), "Break statement outside of loop")

	_, err = NewLLVMBackend().Generate(analyzed(t, `def main() { continue; }`), "test")
	be.True(t, err != nil)
	be.Equal(t, err.Error(), "Continue statement outside of loop")
}

func TestIRCountersResetPerFunction(t *testing.T) {
	got := genIR(t, `
def f(a: int): int { return a + 1; }
def g(b: int): int { return b + 2; }
def main() { }
`)
	be.True(t, strings.Contains(got, `define i64 @f(i64 %a) {
entry:
  %0 = load i64, i64* %a, align 8
  %1 = add i64 %0, 1
  ret i64 %1
}
`))
	be.True(t, strings.Contains(got, `define i64 @g(i64 %b) {
entry:
  %0 = load i64, i64* %b, align 8
  %1 = add i64 %0, 2
  ret i64 %1
}
`))
}

func TestIRPrintFormats(t *testing.T) {
	got := genIR(t, `
def main() {
    println(1.5);
    println(true);
    print(false);
}
`)
	be.True(t, strings.Contains(got, "[4 x i8]* @.str.4, i32 0, i32 0), double 1.5)"))
	be.True(t, strings.Contains(got, "[5 x i8]* @.str.bool_true, i32 0, i32 0))"))
	be.True(t, strings.Contains(got, "[6 x i8]* @.str.bool_false, i32 0, i32 0))"))
}

func TestIRTargetOverrides(t *testing.T) {
	backend := NewLLVMBackend()
	backend.Triple = "x86_64-unknown-linux-gnu"
	backend.DataLayout = "e-m:e-i64:64-n8:16:32:64-S128"
	got, err := backend.Generate(analyzed(t, `def main() { }`), "mod")
	be.Err(t, err, nil)
	be.True(t, strings.Contains(got, "; ModuleID = 'mod'\n"))
	be.True(t, strings.Contains(got, `target triple = "x86_64-unknown-linux-gnu"`))
	be.True(t, strings.Contains(got, `target datalayout = "e-m:e-i64:64-n8:16:32:64-S128"`))
}

func TestIRIfElseBranches(t *testing.T) {
	got := genIR(t, `
def main() {
    store x = 1;
    if (x > 0) {
        println(1);
    } else {
        println(2);
    }
}
`)
	be.True(t, strings.Contains(got, "  br i1 %1, label %label0, label %label1\n"))
	be.True(t, strings.Contains(got, "label2:\n  ret void\n}"))
}
