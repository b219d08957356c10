package tokens

import (
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// USDBAddress is Flashnet's USD stablecoin on Spark.
const USDBAddress = "btkn1xgrvjwey5ngcagvap2dzzvsy4uk8ua9x69k82dwvt5e7ef9drm9qztux87"

var knownTokens = map[string]models.Token{
	constants.BTCAssetPubkey: {Name: "Bitcoin", Ticker: "BTC", Decimals: 8},
	constants.BTCAlias:       {Name: "Bitcoin", Ticker: "BTC", Decimals: 8},

	"btkn1f0wpf28xhs6sswxkthx9fzrv2x9476yk95wlucp4sfuqmxnu8zesv2gsws": {Name: "Snowflake", Ticker: "SNOW", Decimals: 8, LogoURL: "https://sparksat.app/token-logo/snow.png"},
	"btkn1daywtenlww42njymqzyegvcwuy3p9f26zknme0srxa7tagewvuys86h553": {Name: "FlashSparks", Ticker: "FSPKS", Decimals: 8, LogoURL: "https://sparksat.app/token-logo/fspk.jpg"},
	"btkn1msfdnsk3z5slndkj5tal5f0hf3yehtfkd8cepy2vuhl7grhle08q7wcjj0": {Name: "LRC-20", Ticker: "LRC20", Decimals: 8},
	"btkn1slgqpjy3dtz833ttrnxrm0zsq0859tm2qkup53ftec32qhafsn3sqz3vxg": {Name: "Aurora", Ticker: "AURORA", Decimals: 8},
	"btkn1pzvck7xzt96vj4h9agnyu493t7a9jdc4v3j2z3n3fs4cwlcq9yps2zgm4z": {Name: "UTXO", Ticker: "UTXO", Decimals: 6},
	"btkn1ktpx7dlydsvjzdu44kf7mvxj8e0wcyds7tsevpz66dxptlu4fpzsc8s0av": {Name: "Akita Mia", Ticker: "AKITA", Decimals: 6},
	"btkn1zlzhrcx4x947tfg3kwkya35uhue0ha9hg63jfk7a322v2la0uktqaszwne": {Name: "Toto", Ticker: "TOTO", Decimals: 6},
	"btkn12dntujxk024gt53hzykn5zftq6yqz7x9ap8qssjs04kxc42q4lrqqhsfeh": {Name: "bits", Ticker: "BIT", Decimals: 8, LogoURL: "https://sparksat.app/token-logo/bits.jpg"},
	"btkn1qfdgjy5ucgyyzepf5dm65dk2vthv2rwzr6w7jy8p0tpycr5ux3dqyreuvj": {Name: "TeleSpark", Ticker: "TSPK", Decimals: 8},
	"btkn13d3agsc26ll9u0z33tc2mh9pch93stq6wajlmwee6r738mg26mls3huvhu": {Name: "OrdiBird", Ticker: "BIRD", Decimals: 6},
	"btkn1ry6m96kzn3tyefrcj76s2vpcg080wkttjhynu0svsvl892h4uumqkltg39": {Name: "HOP", Ticker: "HOP", Decimals: 8},
	"btkn1dywglzsxyaxx69u4dchyz9vnt4gpmp0w26f3n5st2rslusv4kv7szrrwzm": {Name: "XSpark", Ticker: "XSPK", Decimals: 8},
	USDBAddress: {Name: "USD Bitcoin", Ticker: "USDB", Decimals: 6, LogoURL: "https://flashnet.xyz/images/usdb-full.svg"},
	"btkn16w9v5shwtv78xwsc0dt00sx9g8r8fdtpnhtxfzpfzz8sl9mzt4ts7zh0dl": {Name: "Sooncoin", Ticker: "SOON", Decimals: 8},
	"btkn1q6lea9lkrlz62fgpymm69ffxgghkte5ukk59jmlrsjseg0jsf5xse8h0dl": {Name: "SATOSHI", Ticker: "SATS", Decimals: 8},
	"btkn1zkkmewrwk2j6798tsz3ur26sc8y44h2w43qdyy0pkn99rh3ggmxqf0h0dl": {Name: "Bitcoin Mascot", Ticker: "BITTY", Decimals: 8},
	"btkn14fhz4hgmfsdt3sqgs0dkc46z9vdxgduaykuvtcskkjl8zgj96s9qw3h0dl": {Name: "DRAGON", Ticker: "DRAGON", Decimals: 8},
	"btkn1jhhl7twas5vvff92hglcr7fu394ea9pd5pks74x79x48qw69f4ksgwh0dl": {Name: "h0dl", Ticker: "H0DL", Decimals: 8},
	"btkn1vudakftcq3vyqr76t69fquzwgu5rzdt99jrgcr6vfkst75vf34csajh0dl": {Name: "XBT", Ticker: "XBT", Decimals: 8},
}
