package app

// Command はsocialdemoバイナリのサブコマンドを表す。
type Command string

const (
	// CommandServe はビューアーAPIを起動し、終了シグナルまで外部APIの状態監視を続ける。
	CommandServe Command = "serve"
	// CommandProbe は外部APIの死活確認を1回だけ行うことを示す。
	// 到達できない場合は非ゼロで終了する。
	CommandProbe Command = "probe"
	// CommandHealthcheck は起動中のサーバーの/healthを叩く。
	// distrolessイメージにはcurlがないため、DockerのHEALTHCHECKから呼ぶ。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "probe":
		return CommandProbe
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
