package jsonrpc

import (
	"encoding/json"
	"testing"

	o "github.com/onsi/gomega"
)

func TestError_Sentinels(t *testing.T) {
	g := o.NewWithT(t)

	timeout := NewTimeoutError("2s")
	g.Expect(timeout.Code).To(o.Equal(CodeClientTimeout))
	g.Expect(timeout.Message).To(o.Equal("Timeout after 2s"))
	g.Expect(timeout.IsTimeout()).To(o.BeTrue())

	remote := &Error{Code: CodeMethodNotFound, Message: "no such method"}
	g.Expect(remote.IsTimeout()).To(o.BeFalse())
	g.Expect(remote.Error()).To(o.Equal("JSON-RPC error (code -32601): no such method"))

	var nilErr *Error
	g.Expect(nilErr.IsTimeout()).To(o.BeFalse())
}

func TestRequest_OmitsEmptyParams(t *testing.T) {
	g := o.NewWithT(t)

	data, err := json.Marshal(NewRequest(7, "tools/list", nil))
	g.Expect(err).NotTo(o.HaveOccurred())
	g.Expect(string(data)).To(o.Equal(`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`))
}

func TestNotification_HasNoID(t *testing.T) {
	g := o.NewWithT(t)

	data, err := json.Marshal(NewNotification("notifications/initialized"))
	g.Expect(err).NotTo(o.HaveOccurred())
	g.Expect(string(data)).NotTo(o.ContainSubstring(`"id"`))
}

func TestResponse_ErrorXorResult(t *testing.T) {
	g := o.NewWithT(t)

	var ok Response
	g.Expect(json.Unmarshal(
		[]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`), &ok)).To(o.Succeed())
	g.Expect(ok.Error).To(o.BeNil())
	g.Expect(ok.Result).NotTo(o.BeEmpty())

	var failed Response
	g.Expect(json.Unmarshal(
		[]byte(`{"jsonrpc":"2.0","id":2,"error":{"code":-32700,"message":"parse error"}}`),
		&failed)).To(o.Succeed())
	g.Expect(failed.Error.Code).To(o.Equal(CodeParseError))
	g.Expect(failed.Result).To(o.BeEmpty())
}
