package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeRetriever struct{ docs []Document }

func (slf *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) ([]Document, error) {
	return slf.docs, nil
}

type fakeStoreHandle struct{ retriever *fakeRetriever }

func (slf *fakeStoreHandle) AsRetriever() Retriever { return slf.retriever }

func TestRun_SeedsInitialValuesAndCustomPrompt(t *testing.T) {
	wf := NewWorkflow("Answer in French.")
	loader := &fakeNode{
		nodeType: NodeTypePDFLoader,
		name:     "Loader",
		inputs:   []string{KeyFileContent},
		outputs:  []string{KeyDocuments},
		handler: func(args map[string]any) Result {
			return Succeed(map[string]any{KeyDocuments: []Document{{PageContent: "hello"}}}, nil)
		},
	}
	wf.AddNode("loader", loader)

	results, err := NewExecutor(wf, testLogger()).Run(context.Background(), map[string]any{
		KeyFileContent: []byte("%PDF-"),
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-"), loader.gotArgs[KeyFileContent])
	assert.Equal(t, "Answer in French.", results[KeyCustomPrompt])
	assert.Contains(t, results, KeyDocuments)

	entry, _ := wf.Node("loader")
	assert.Equal(t, StatusSuccess, entry.Status)
}

func TestRun_ConnectionBindsSourceOutputToTargetInput(t *testing.T) {
	wf := NewWorkflow("")
	docs := []Document{{PageContent: "page one"}}
	wf.AddNode("a", &fakeNode{
		nodeType: "generic", name: "A", outputs: []string{"docs"},
		handler: func(map[string]any) Result {
			return Succeed(map[string]any{"docs": docs}, nil)
		},
	})
	target := &fakeNode{nodeType: "generic", name: "B", inputs: []string{"docs"}, outputs: []string{"out"}}
	wf.AddNode("b", target)
	require.NoError(t, wf.Connect(Connection{ID: "c1", SourceNode: "a", SourceOutput: "docs", TargetNode: "b", TargetInput: "docs"}))

	_, err := NewExecutor(wf, testLogger()).Run(context.Background(), nil)
	require.NoError(t, err)

	require.True(t, target.invoked)
	assert.Equal(t, docs, target.gotArgs["docs"])
}

func TestRun_ConnectionBindingOverridesSeededValue(t *testing.T) {
	wf := NewWorkflow("")
	wf.AddNode("a", &fakeNode{
		nodeType: "generic", name: "A", outputs: []string{KeyDocuments},
		handler: func(map[string]any) Result {
			return Succeed(map[string]any{KeyDocuments: "from-connection"}, nil)
		},
	})
	splitter := &fakeNode{nodeType: NodeTypeTextSplitter, name: "Splitter", inputs: []string{KeyDocuments}, outputs: []string{KeyChunks}}
	wf.AddNode("split", splitter)
	require.NoError(t, wf.Connect(Connection{ID: "c1", SourceNode: "a", SourceOutput: KeyDocuments, TargetNode: "split", TargetInput: KeyDocuments}))

	_, err := NewExecutor(wf, testLogger()).Run(context.Background(), map[string]any{KeyDocuments: "from-initial"})
	require.NoError(t, err)

	assert.Equal(t, "from-connection", splitter.gotArgs[KeyDocuments])
}

func TestRun_NodeFailureDoesNotAbortRun(t *testing.T) {
	wf := NewWorkflow("")
	wf.AddNode("a", producerNode("A", "x", 1))
	wf.AddNode("bad", &fakeNode{
		nodeType: "generic", name: "Bad", outputs: []string{"y"},
		handler: func(map[string]any) Result { return Fail("boom") },
	})
	last := producerNode("C", "z", 3)
	wf.AddNode("c", last)

	results, err := NewExecutor(wf, testLogger()).Run(context.Background(), nil)
	require.NoError(t, err, "node failures must not surface as run errors")

	require.True(t, last.invoked)
	assert.Equal(t, 1, results["x"])
	assert.NotContains(t, results, "y", "failed node outputs must not leak into the namespace")
	assert.Equal(t, 3, results["z"])

	bad, _ := wf.Node("bad")
	assert.Equal(t, StatusError, bad.Status)
	assert.Equal(t, "boom", bad.Result.Error)
	ok, _ := wf.Node("c")
	assert.Equal(t, StatusSuccess, ok.Status)
}

func TestRun_DownstreamOfFailedSourceGetsResolutionError(t *testing.T) {
	wf := NewWorkflow("")
	wf.AddNode("loader", &fakeNode{
		nodeType: NodeTypePDFLoader, name: "Loader", outputs: []string{KeyDocuments},
		handler: func(map[string]any) Result { return Fail("parse failed") },
	})
	splitter := &fakeNode{nodeType: NodeTypeTextSplitter, name: "Splitter", inputs: []string{KeyDocuments}, outputs: []string{KeyChunks}}
	wf.AddNode("split", splitter)
	require.NoError(t, wf.Connect(Connection{ID: "c1", SourceNode: "loader", SourceOutput: KeyDocuments, TargetNode: "split", TargetInput: KeyDocuments}))

	_, err := NewExecutor(wf, testLogger()).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.False(t, splitter.invoked, "splitter has no input, it must not run")
	entry, _ := wf.Node("split")
	assert.Equal(t, StatusError, entry.Status)
	assert.NotEmpty(t, entry.Result.Error)
}

func TestRun_LastWriterWinsOnSharedOutputPort(t *testing.T) {
	wf := NewWorkflow("")
	wf.AddNode("first", producerNode("First", "answer", "early"))
	wf.AddNode("second", producerNode("Second", "answer", "late"))

	results, err := NewExecutor(wf, testLogger()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "late", results["answer"])
}

func TestRun_CycleAbortsBeforeAnyNodeRuns(t *testing.T) {
	wf := NewWorkflow("")
	a := producerNode("A", "x", 1)
	b := producerNode("B", "y", 2)
	wf.AddNode("a", a)
	wf.AddNode("b", b)
	require.NoError(t, wf.Connect(Connection{ID: "1", SourceNode: "a", SourceOutput: "x", TargetNode: "b", TargetInput: "x"}))
	require.NoError(t, wf.Connect(Connection{ID: "2", SourceNode: "b", SourceOutput: "y", TargetNode: "a", TargetInput: "y"}))

	_, err := NewExecutor(wf, testLogger()).Run(context.Background(), nil)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.False(t, a.invoked)
	assert.False(t, b.invoked)
}

func TestRun_PanickingNodeBecomesFailure(t *testing.T) {
	wf := NewWorkflow("")
	wf.AddNode("bad", &fakeNode{
		nodeType: "generic", name: "Bad", outputs: []string{"x"},
		handler: func(map[string]any) Result { panic("nil map write") },
	})
	after := producerNode("After", "y", 2)
	wf.AddNode("after", after)

	results, err := NewExecutor(wf, testLogger()).Run(context.Background(), nil)
	require.NoError(t, err)

	entry, _ := wf.Node("bad")
	assert.Equal(t, StatusError, entry.Status)
	assert.Contains(t, entry.Result.Error, "panicked")
	assert.True(t, after.invoked)
	assert.Equal(t, 2, results["y"])
}

func TestRun_QAChainDerivesRetrieverFromVectorStore(t *testing.T) {
	retriever := &fakeRetriever{docs: []Document{{PageContent: "ctx"}}}
	handle := &fakeStoreHandle{retriever: retriever}

	wf := NewWorkflow("")
	wf.AddNode("store", &fakeNode{
		nodeType: NodeTypeVectorStore, name: "Store",
		inputs:  []string{KeyDocuments, KeyChunks},
		outputs: []string{KeyVectorStore},
		handler: func(map[string]any) Result {
			return Succeed(map[string]any{KeyVectorStore: handle}, nil)
		},
	})
	qa := &fakeNode{
		nodeType: NodeTypeQAChain, name: "QA",
		inputs:  []string{KeyRetriever, KeyQuestion, KeyCustomPrompt},
		outputs: []string{KeyAnswer},
		handler: func(args map[string]any) Result {
			return Succeed(map[string]any{KeyAnswer: "42"}, nil)
		},
	}
	wf.AddNode("qa", qa)

	results, err := NewExecutor(wf, testLogger()).Run(context.Background(), map[string]any{
		KeyDocuments: []Document{{PageContent: "ctx"}},
		KeyQuestion:  "what is the answer?",
	})
	require.NoError(t, err)

	require.True(t, qa.invoked)
	got, ok := qa.gotArgs[KeyRetriever].(Retriever)
	require.True(t, ok, "qa node must receive a usable retriever")
	assert.Same(t, retriever, got)
	assert.Equal(t, "42", results[KeyAnswer])
}

func TestRun_ProgressCallbackSequence(t *testing.T) {
	wf := NewWorkflow("")
	wf.AddNode("ok", producerNode("OK", "x", 1))
	wf.AddNode("bad", &fakeNode{
		nodeType: "generic", name: "Bad", outputs: []string{"y"},
		handler: func(map[string]any) Result { return Fail("boom") },
	})

	var updates []Progress
	_, err := NewExecutor(wf, testLogger()).
		WithProgress(func(p Progress) { updates = append(updates, p) }).
		Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, updates, 4)
	assert.Equal(t, Progress{NodeID: "ok", NodeName: "OK", Status: StatusRunning}, updates[0])
	assert.Equal(t, Progress{NodeID: "ok", NodeName: "OK", Status: StatusCompleted}, updates[1])
	assert.Equal(t, Progress{NodeID: "bad", NodeName: "Bad", Status: StatusRunning}, updates[2])
	assert.Equal(t, StatusFailed, updates[3].Status)
	assert.Equal(t, "boom", updates[3].Message)
}
