package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"vehicle-checkout/internal/checkout"

	"github.com/labstack/echo/v4"
)

var checkoutPage = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Options.Name}} checkout</title>
	<script src="{{.ScriptURL}}"></script>
	<style>
		body {
			font-family: Arial, sans-serif;
			text-align: center;
			margin-top: 80px;
		}
	</style>
</head>
<body>
	<h2>{{.Options.Description}}</h2>
	<p id="status">Amount: {{.Amount}}</p>

	<script>
		const base = "/api/checkout/" + {{.AttemptID}};
		const status = document.getElementById("status");

		function post(path, body) {
			return fetch(base + path, {
				method: "POST",
				headers: { "Content-Type": "application/json" },
				body: JSON.stringify(body || {})
			}).then(function (r) { return r.json(); });
		}

		function show(res) {
			if (res.error) {
				status.textContent = res.error.message;
			} else if (res.result && res.result.success) {
				status.textContent = "Payment successful! Your vehicle purchase is confirmed.";
			}
		}

		const options = {{.Options}};
		options.handler = function (response) {
			status.textContent = "Verifying payment...";
			post("/success", {
				razorpay_order_id: response.razorpay_order_id,
				razorpay_payment_id: response.razorpay_payment_id,
				razorpay_signature: response.razorpay_signature
			}).then(show);
		};
		options.modal = {
			ondismiss: function () {
				post("/dismiss").then(function () { status.textContent = "Payment cancelled"; });
			}
		};

		const rzp = new Razorpay(options);
		rzp.on("payment.failed", function (response) {
			post("/failure", { error: response.error }).then(show);
		});
		rzp.open();
	</script>
</body>
</html>
`))

type checkoutPageData struct {
	AttemptID string
	ScriptURL string
	Amount    string
	Options   checkout.WidgetConfig
}

func (h *CheckoutHandler) CheckoutPage(c echo.Context) error {
	attemptID := c.Param("attemptID")

	cfg, ok := h.checkoutService.PendingWidget(attemptID)
	if !ok {
		return c.String(http.StatusNotFound, "checkout not found or already closed")
	}

	var buf bytes.Buffer
	err := checkoutPage.Execute(&buf, checkoutPageData{
		AttemptID: attemptID,
		ScriptURL: h.scriptURL,
		Amount:    checkout.FormatAmount(cfg.Amount, cfg.Currency),
		Options:   cfg,
	})
	if err != nil {
		return err
	}

	return c.HTML(http.StatusOK, buf.String())
}
