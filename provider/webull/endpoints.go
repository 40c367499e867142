package webull

// Endpoint catalog. WeBull splits its API across several hosts; endpoints are
// absolute URLs and the transport passes them through untouched. Paths with
// %s placeholders are filled by fmt.Sprintf at call time.
const (
	userBase  = "https://userapi.webull.com/api"
	tradeBase = "https://tradeapi.webulltrade.com/api"
	quoteBase = "https://quotes-gw.webullfintech.com/api"
	pushBase  = "wss://push.webullfintech.com/api/push"
)

const (
	endpointDeviceRegister = userBase + "/passport/device/register"
	endpointLogin          = userBase + "/passport/login/v5/account"
	endpointLogout         = userBase + "/passport/login/logout"
	endpointRefreshToken   = userBase + "/passport/refreshToken?refreshToken=%s"
	endpointSendLoginCode  = userBase + "/passport/verificationCode/send/v2"

	endpointTradeToken  = tradeBase + "/trading/v1/global/trade/login"
	endpointAccountList = tradeBase + "/account/getSecAccountList/v5"
	endpointAccountHome = tradeBase + "/trade/v3/home/%s"
	endpointPositions   = tradeBase + "/trade/v2/position/list/%s"
	endpointOrders      = tradeBase + "/trade/v2/order/list/%s"
	endpointPlaceOrder  = tradeBase + "/trade/order/%s/placeStockOrder"
	endpointModifyOrder = tradeBase + "/trade/order/%s/modifyStockOrder/%s"
	endpointCancelOrder = tradeBase + "/trade/order/%s/cancelStockOrder/%s/%s"

	endpointSearchTickers = quoteBase + "/search/pc/tickers"
	endpointQuotes        = quoteBase + "/bgw/quote/realtime"
	endpointBars          = quoteBase + "/quote/charts/query"
)

// passwordSalt is prepended to passwords before MD5 hashing. This is the
// provider's documented wire contract, not a storage scheme.
const passwordSalt = "wl_app-a&b@!423^"

// Timeframe tokens accepted by the bars endpoint.
var barTimeframes = map[string]string{
	"1m":  "m1",
	"5m":  "m5",
	"15m": "m15",
	"30m": "m30",
	"1h":  "m60",
	"1d":  "d1",
	"1w":  "w1",
	"1mo": "mth1",
}
