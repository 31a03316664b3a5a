package main

import "fmt"

const completionUsage = `Usage: reqdesk completion <bash|zsh|fish>

Generate shell completion scripts.

Examples:
  # Bash
  reqdesk completion bash > /usr/local/etc/bash_completion.d/reqdesk
  # Zsh
  reqdesk completion zsh > "${fpath[1]}/_reqdesk"
  # Fish
  reqdesk completion fish > ~/.config/fish/completions/reqdesk.fish
`

func completionCmd(args []string, e *env) int {
	fs := newFlagSet("completion", e, completionUsage)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(e.stderr, "Error: shell name is required (bash, zsh, or fish)\n\n")
		fs.Usage()
		return exitUsage
	}

	switch shell := fs.Arg(0); shell {
	case "bash":
		fmt.Fprint(e.stdout, generateBashCompletion())
	case "zsh":
		fmt.Fprint(e.stdout, generateZshCompletion())
	case "fish":
		fmt.Fprint(e.stdout, generateFishCompletion())
	default:
		fmt.Fprintf(e.stderr, "Error: unsupported shell %q (use bash, zsh, or fish)\n", shell)
		return exitUsage
	}
	return exitOK
}

func generateBashCompletion() string {
	return `# bash completion for reqdesk                            -*- shell-script -*-

_reqdesk() {
    local cur prev words cword
    _init_completion || return

    local commands="send history replay highlight invoke completion version help"

    local common_flags="--config --db --debug --log-stderr"
    local send_flags="-q -H -d --save --highlight --copy --json --raw --timeout --curl ${common_flags}"
    local history_flags="--limit --search --find --method --status --since --json --lang --no-highlight -o ${common_flags}"
    local replay_flags="--all --search --method --status --limit --output --save --concurrency --perf-threshold --fail-on-change --verbose ${common_flags}"
    local highlight_flags="--lang --html --style --list ${common_flags}"
    local invoke_flags="--list --compact ${common_flags}"

    local methods="GET POST PUT PATCH DELETE HEAD OPTIONS"
    local history_actions="list show curl code har"
    local invoke_commands="send_request save_request get_requests highlight_code"
    local output_formats="text json junit"
    local snippet_langs="go python javascript curl"
    local shells="bash zsh fish"

    if [[ ${cword} -eq 1 ]]; then
        COMPREPLY=($(compgen -W "${commands}" -- "${cur}"))
        return
    fi

    local command="${words[1]}"

    # Complete flag values
    case "${prev}" in
        --method)
            COMPREPLY=($(compgen -W "${methods}" -- "${cur}"))
            return
            ;;
        --output)
            COMPREPLY=($(compgen -W "${output_formats}" -- "${cur}"))
            return
            ;;
        --lang)
            if [[ "${command}" == "history" ]]; then
                COMPREPLY=($(compgen -W "${snippet_langs}" -- "${cur}"))
            fi
            return
            ;;
        --config|--db|-o)
            _filedir
            return
            ;;
        -q|-H|-d|--curl|--timeout|--limit|--search|--find|--status|--since|--style|--concurrency|--perf-threshold)
            # These take user-provided values, no completion
            return
            ;;
    esac

    case "${command}" in
        send)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${send_flags}" -- "${cur}"))
            elif [[ ${cword} -eq 2 ]]; then
                COMPREPLY=($(compgen -W "${methods}" -- "${cur}"))
            fi
            ;;
        history)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${history_flags}" -- "${cur}"))
            elif [[ ${cword} -eq 2 ]]; then
                COMPREPLY=($(compgen -W "${history_actions}" -- "${cur}"))
            fi
            ;;
        replay)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${replay_flags}" -- "${cur}"))
            fi
            ;;
        highlight)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${highlight_flags}" -- "${cur}"))
            else
                _filedir
            fi
            ;;
        invoke)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${invoke_flags}" -- "${cur}"))
            else
                COMPREPLY=($(compgen -W "${invoke_commands}" -- "${cur}"))
            fi
            ;;
        completion)
            COMPREPLY=($(compgen -W "${shells}" -- "${cur}"))
            ;;
    esac
}

complete -F _reqdesk reqdesk
`
}

func generateZshCompletion() string {
	return `#compdef reqdesk

# zsh completion for reqdesk

_reqdesk() {
    local -a commands common
    commands=(
        'send:Send one HTTP request'
        'history:List, search or export saved requests'
        'replay:Send saved requests again'
        'highlight:Syntax-highlight a file or stdin'
        'invoke:Call a named command with JSON arguments'
        'completion:Generate shell completion scripts'
        'version:Print version information'
        'help:Show help message'
    )
    common=(
        '--config[Config file path]:config file:_files'
        '--db[History database path]:database file:_files'
        '--debug[Enable debug logging]'
        '--log-stderr[Log to stderr instead of the log file]'
    )

    _arguments -C \
        '1:command:->command' \
        '*::arg:->args'

    case $state in
        command)
            _describe -t commands 'reqdesk commands' commands
            ;;
        args)
            case $words[1] in
                send)
                    _arguments $common \
                        '*-q[Query parameter key=value]:param:' \
                        '*-H[Header "Name: value"]:header:' \
                        '-d[Request body, @file or @-]:body:' \
                        '--save[Save the exchange to history]' \
                        '--highlight[Syntax-highlight the response body]' \
                        '--copy[Copy the response body to the clipboard]' \
                        '--json[Print the response as JSON]' \
                        '--raw[Print the body exactly as received]' \
                        '--timeout[Override the request timeout]:timeout:' \
                        '--curl[Send the request described by a curl command]:curl command:' \
                        '1:method:(GET POST PUT PATCH DELETE HEAD OPTIONS)' \
                        '2:url:_urls'
                    ;;
                history)
                    _arguments $common \
                        '--limit[Maximum number of entries]:limit:' \
                        '--search[URL substring]:text:' \
                        '--find[Fuzzy match on method and URL]:pattern:' \
                        '--method[HTTP method]:method:(GET POST PUT PATCH DELETE HEAD OPTIONS)' \
                        '--status[Status code or class]:status:' \
                        '--since[Saved within duration]:duration:' \
                        '--json[Print entries as JSON]' \
                        '--lang[Snippet language]:language:(go python javascript curl)' \
                        '--no-highlight[Do not syntax-highlight output]' \
                        '-o[HAR output file]:output file:_files' \
                        '1:action:(list show curl code har)'
                    ;;
                replay)
                    _arguments $common \
                        '--all[Replay every matching entry]' \
                        '--search[URL substring]:text:' \
                        '--method[HTTP method]:method:(GET POST PUT PATCH DELETE HEAD OPTIONS)' \
                        '--status[Recorded status code or class]:status:' \
                        '--limit[Replay at most this many]:limit:' \
                        '--output[Output format]:format:(text json junit)' \
                        '--save[Save successful replays]' \
                        '--concurrency[Maximum requests in flight]:concurrency:' \
                        '--perf-threshold[Regression threshold percentage]:threshold:' \
                        '--fail-on-change[Fail when a status changes]' \
                        '--verbose[Print response bodies]' \
                        '*:entry id:'
                    ;;
                highlight)
                    _arguments $common \
                        '--lang[Language token]:language:' \
                        '--html[Emit HTML spans]' \
                        '--style[Chroma style]:style:' \
                        '--list[List supported languages]' \
                        '1:file:_files'
                    ;;
                invoke)
                    _arguments $common \
                        '--list[List registered commands]' \
                        '--compact[Print the result without indentation]' \
                        '1:command:(send_request save_request get_requests highlight_code)' \
                        '2:json arguments:'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_reqdesk "$@"
`
}

func generateFishCompletion() string {
	return `# fish completion for reqdesk

# Disable file completions by default
complete -c reqdesk -f

# Subcommands
complete -c reqdesk -n '__fish_use_subcommand' -a send -d 'Send one HTTP request'
complete -c reqdesk -n '__fish_use_subcommand' -a history -d 'List, search or export saved requests'
complete -c reqdesk -n '__fish_use_subcommand' -a replay -d 'Send saved requests again'
complete -c reqdesk -n '__fish_use_subcommand' -a highlight -d 'Syntax-highlight a file or stdin'
complete -c reqdesk -n '__fish_use_subcommand' -a invoke -d 'Call a named command with JSON arguments'
complete -c reqdesk -n '__fish_use_subcommand' -a completion -d 'Generate shell completion scripts'
complete -c reqdesk -n '__fish_use_subcommand' -a version -d 'Print version information'
complete -c reqdesk -n '__fish_use_subcommand' -a help -d 'Show help message'

# common flags
complete -c reqdesk -n 'not __fish_use_subcommand' -l config -d 'Config file path' -rF
complete -c reqdesk -n 'not __fish_use_subcommand' -l db -d 'History database path' -rF
complete -c reqdesk -n 'not __fish_use_subcommand' -l debug -d 'Enable debug logging'
complete -c reqdesk -n 'not __fish_use_subcommand' -l log-stderr -d 'Log to stderr instead of the log file'

# send flags
complete -c reqdesk -n '__fish_seen_subcommand_from send' -s q -d 'Query parameter key=value' -r
complete -c reqdesk -n '__fish_seen_subcommand_from send' -s H -d 'Header "Name: value"' -r
complete -c reqdesk -n '__fish_seen_subcommand_from send' -s d -d 'Request body, @file or @-' -r
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l save -d 'Save the exchange to history'
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l highlight -d 'Syntax-highlight the response body'
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l copy -d 'Copy the response body to the clipboard'
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l json -d 'Print the response as JSON'
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l raw -d 'Print the body exactly as received'
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l timeout -d 'Override the request timeout' -r
complete -c reqdesk -n '__fish_seen_subcommand_from send' -l curl -d 'Send the request described by a curl command' -r
complete -c reqdesk -n '__fish_seen_subcommand_from send' -a 'GET POST PUT PATCH DELETE HEAD OPTIONS'

# history actions and flags
complete -c reqdesk -n '__fish_seen_subcommand_from history' -a 'list show curl code har'
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l limit -d 'Maximum number of entries' -r
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l search -d 'URL substring' -r
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l find -d 'Fuzzy match on method and URL' -r
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l method -d 'HTTP method' -ra 'GET POST PUT PATCH DELETE HEAD OPTIONS'
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l status -d 'Status code or class' -r
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l since -d 'Saved within duration' -r
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l json -d 'Print entries as JSON'
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l lang -d 'Snippet language' -ra 'go python javascript curl'
complete -c reqdesk -n '__fish_seen_subcommand_from history' -l no-highlight -d 'Do not syntax-highlight output'
complete -c reqdesk -n '__fish_seen_subcommand_from history' -s o -d 'HAR output file' -rF

# replay flags
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l all -d 'Replay every matching entry'
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l search -d 'URL substring' -r
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l method -d 'HTTP method' -ra 'GET POST PUT PATCH DELETE HEAD OPTIONS'
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l status -d 'Recorded status code or class' -r
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l limit -d 'Replay at most this many' -r
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l output -d 'Output format' -ra 'text json junit'
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l save -d 'Save successful replays'
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l concurrency -d 'Maximum requests in flight' -r
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l perf-threshold -d 'Regression threshold percentage' -r
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l fail-on-change -d 'Fail when a status changes'
complete -c reqdesk -n '__fish_seen_subcommand_from replay' -l verbose -d 'Print response bodies'

# highlight flags
complete -c reqdesk -n '__fish_seen_subcommand_from highlight' -l lang -d 'Language token' -r
complete -c reqdesk -n '__fish_seen_subcommand_from highlight' -l html -d 'Emit HTML spans'
complete -c reqdesk -n '__fish_seen_subcommand_from highlight' -l style -d 'Chroma style' -r
complete -c reqdesk -n '__fish_seen_subcommand_from highlight' -l list -d 'List supported languages'
complete -c reqdesk -n '__fish_seen_subcommand_from highlight' -F

# invoke
complete -c reqdesk -n '__fish_seen_subcommand_from invoke' -a 'send_request save_request get_requests highlight_code'
complete -c reqdesk -n '__fish_seen_subcommand_from invoke' -l list -d 'List registered commands'
complete -c reqdesk -n '__fish_seen_subcommand_from invoke' -l compact -d 'Print the result without indentation'

# completion - shell names
complete -c reqdesk -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish' -d 'Shell type'
`
}
