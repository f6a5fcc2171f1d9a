package jingle

import "fmt"

var codecNameToType = map[string]CodecType{
	"opus": CodecOpus, "H264": CodecH264, "VP8": CodecVP8, "VP9": CodecVP9, "AV1": CodecAV1,
}

var codecTypeToName = map[CodecType]string{
	CodecOpus: "opus", CodecH264: "H264", CodecVP8: "VP8", CodecVP9: "VP9", CodecAV1: "AV1",
}

func sourceTypeFromMedia(media string) (SourceType, bool) {
	switch media {
	case "audio":
		return SourceTypeAudio, true
	case "video":
		return SourceTypeVideo, true
	}
	return "", false
}

func replaceDefault(dst *int, val int) {
	if *dst == -1 {
		*dst = val
	}
}

// descriptionParseResult is the per-<description/> extraction original_source's
// jingle.cpp keeps local to on_initiate, before it is folded into the
// session-wide SSRCMap and hdrext fields.
type descriptionParseResult struct {
	codecs []Codec

	videoHdrExtTransportCC    int
	audioHdrExtTransportCC    int
	audioHdrExtSSRCAudioLevel int
}

// extractDescription is the jingle.cpp::parse_rtp_description equivalent:
// it splits an RTPDescription's payload types into codecs (pairing rtx
// payload types to their apt), captures the two header extensions this
// client understands, and records each source's owner into ssrcMap.
func extractDescription(desc RTPDescription, ssrcMap SSRCMap) (descriptionParseResult, error) {
	if desc.Media == "" {
		return descriptionParseResult{}, fmt.Errorf("jingle: description has no media attribute")
	}
	sourceType, ok := sourceTypeFromMedia(desc.Media)
	if !ok {
		return descriptionParseResult{}, fmt.Errorf("jingle: unknown media %q", desc.Media)
	}

	r := descriptionParseResult{
		videoHdrExtTransportCC:    -1,
		audioHdrExtTransportCC:    -1,
		audioHdrExtSSRCAudioLevel: -1,
	}

	for _, pt := range desc.PayloadTypes {
		if pt.Name == "rtx" {
			continue
		}
		codecType, ok := codecNameToType[pt.Name]
		if !ok {
			continue
		}
		r.codecs = append(r.codecs, Codec{
			Type:    codecType,
			TxPT:    pt.ID,
			RtxPT:   -1,
			RTCPFbs: pt.RTCPFbs,
		})
	}

	for _, pt := range desc.PayloadTypes {
		if pt.Name != "rtx" {
			continue
		}
		for _, p := range pt.Parameters {
			if p.Name != "apt" {
				continue
			}
			for i := range r.codecs {
				if fmt.Sprint(r.codecs[i].TxPT) == p.Value {
					r.codecs[i].RtxPT = pt.ID
					break
				}
			}
			break
		}
	}

	for _, ext := range desc.RTPHeaderExts {
		switch ext.URI {
		case RTPHdrExtSSRCAudioLevelURI:
			r.audioHdrExtSSRCAudioLevel = ext.ID
		case RTPHdrExtTransportCCURI:
			switch sourceType {
			case SourceTypeAudio:
				r.audioHdrExtTransportCC = ext.ID
			case SourceTypeVideo:
				r.videoHdrExtTransportCC = ext.ID
			}
		}
	}

	for _, src := range desc.Sources {
		ssrcMap[src.Ssrc] = MediaSource{Ssrc: src.Ssrc, Type: sourceType, ParticipantID: src.Owner}
	}

	return r, nil
}

// BuildSessionFromOffer is the protocol half of jingle.cpp's on_initiate:
// it folds every content's description into codecs, an SSRCMap and the
// three header-extension ids, generates this side's own SSRCs and DTLS
// identity, and returns a copy of the first ICE-UDP transport found so the
// caller can set up its ICE agent against it. It does not touch ICE at all —
// that is the caller's job (cmd/headless-client's OnJingleInitiate does it
// with the transport adapters).
func BuildSessionFromOffer(offer Jingle, rng RNG, crypto Crypto) (*JingleSession, *IceUdpTransport, error) {
	ssrcMap := SSRCMap{}
	var codecs []Codec
	videoHdrExtTransportCC := -1
	audioHdrExtTransportCC := -1
	audioHdrExtSSRCAudioLevel := -1
	var transport *IceUdpTransport

	for _, c := range offer.Contents {
		for _, d := range c.Descriptions {
			parsed, err := extractDescription(d, ssrcMap)
			if err != nil {
				return nil, nil, err
			}
			codecs = append(codecs, parsed.codecs...)
			replaceDefault(&videoHdrExtTransportCC, parsed.videoHdrExtTransportCC)
			replaceDefault(&audioHdrExtTransportCC, parsed.audioHdrExtTransportCC)
			replaceDefault(&audioHdrExtSSRCAudioLevel, parsed.audioHdrExtSSRCAudioLevel)
		}
		if len(c.Transports) > 0 && transport == nil {
			first := c.Transports[0]
			transport = &first
		}
	}

	certPEM, privKeyPEM, fingerprint, err := crypto.GenerateSelfSignedCert()
	if err != nil {
		return nil, nil, fmt.Errorf("jingle: generating dtls identity: %w", err)
	}

	session := &JingleSession{
		InitiateJingle:            offer,
		Codecs:                    codecs,
		SSRCMap:                   ssrcMap,
		AudioSSRC:                 rng.Uint32(),
		VideoSSRC:                 rng.Uint32(),
		VideoRtxSSRC:              rng.Uint32(),
		VideoHdrExtTransportCC:    videoHdrExtTransportCC,
		AudioHdrExtTransportCC:    audioHdrExtTransportCC,
		AudioHdrExtSSRCAudioLevel: audioHdrExtSSRCAudioLevel,
		FingerprintStr:            fingerprint,
		DTLSCertPEM:               certPEM,
		DTLSPrivKeyPEM:            privKeyPEM,
	}
	return session, transport, nil
}

// ApplySourceAdd is the jingle.cpp::on_add_source equivalent: it folds a
// source-add's sources into the session's SSRCMap. Re-adding an already
// known SSRC simply overwrites its entry with the same values, so applying
// the same source-add twice is a no-op.
func ApplySourceAdd(session *JingleSession, j Jingle) {
	for _, c := range j.Contents {
		for _, desc := range c.Descriptions {
			sourceType, ok := sourceTypeFromMedia(desc.Media)
			if !ok {
				continue
			}
			for _, src := range desc.Sources {
				session.SSRCMap[src.Ssrc] = MediaSource{
					Ssrc:          src.Ssrc,
					Type:          sourceType,
					ParticipantID: src.Owner,
				}
			}
		}
	}
}

// BuildAccept is the jingle.cpp::build_accept_jingle equivalent: it builds
// the session-accept Jingle answering session.InitiateJingle, offering one
// audio content using audioCodec and one video content using videoCodec,
// each with cname/msid-stamped sources, the session's chosen header
// extensions, a FID ssrc-group pairing the video SSRC with its rtx SSRC,
// and an ICE-UDP transport carrying localCandidates plus this session's
// DTLS fingerprint (setup="active", required="false"), finished off with a
// BUNDLE group over both contents.
func BuildAccept(session *JingleSession, audioCodec, videoCodec CodecType, localJidFull string, localCandidates []Candidate, rng RNG) (Jingle, error) {
	offer := session.InitiateJingle
	accept := Jingle{
		Action:    ActionSessionAccept,
		Sid:       offer.Sid,
		Initiator: offer.Initiator,
		Responder: localJidFull,
	}

	kinds := []struct {
		isAudio   bool
		codecType CodecType
		mainSsrc  uint32
	}{
		{true, audioCodec, session.AudioSSRC},
		{false, videoCodec, session.VideoSSRC},
	}

	for _, k := range kinds {
		codec := session.FindCodecByType(k.codecType)
		if codec == nil {
			return Jingle{}, fmt.Errorf("jingle: no negotiated codec of type %q", k.codecType)
		}

		clockrate := 90000
		channels := -1
		if k.isAudio {
			clockrate = 48000
			channels = 2
		}

		rtpDesc := RTPDescription{Media: mediaName(k.isAudio), Ssrc: int64(k.mainSsrc)}
		rtpDesc.PayloadTypes = append(rtpDesc.PayloadTypes, PayloadType{
			ID:        codec.TxPT,
			Clockrate: clockrate,
			Channels:  channels,
			Name:      codecTypeToName[k.codecType],
			RTCPFbs:   codec.RTCPFbs,
		})

		if codec.RtxPT != -1 {
			rtx := PayloadType{
				ID:        codec.RtxPT,
				Clockrate: clockrate,
				Channels:  channels,
				Name:      "rtx",
				Parameters: []Parameter{
					{Name: "apt", Value: fmt.Sprint(codec.TxPT)},
				},
			}
			for _, fb := range codec.RTCPFbs {
				if fb.Type != "transport-cc" {
					rtx.RTCPFbs = append(rtx.RTCPFbs, fb)
				}
			}
			rtpDesc.PayloadTypes = append(rtpDesc.PayloadTypes, rtx)
		}

		rtpDesc.Sources = append(rtpDesc.Sources, Source{Ssrc: k.mainSsrc})
		if !k.isAudio {
			rtpDesc.Sources = append(rtpDesc.Sources, Source{Ssrc: session.VideoRtxSSRC})
		}

		streamID := rng.Uint32()
		label := fmt.Sprintf("stream_label_%d", streamID)
		mslabel := fmt.Sprintf("multi_stream_label_%d", streamID)
		msid := mslabel + " " + label
		cname := fmt.Sprintf("cname_%d", streamID)
		for i := range rtpDesc.Sources {
			rtpDesc.Sources[i].Parameters = append(rtpDesc.Sources[i].Parameters,
				Parameter{Name: "cname", Value: cname},
				Parameter{Name: "msid", Value: msid},
			)
		}

		if k.isAudio {
			rtpDesc.RTPHeaderExts = append(rtpDesc.RTPHeaderExts,
				RTPHeaderExt{ID: session.AudioHdrExtSSRCAudioLevel, URI: RTPHdrExtSSRCAudioLevelURI},
				RTPHeaderExt{ID: session.AudioHdrExtTransportCC, URI: RTPHdrExtTransportCCURI},
			)
		} else {
			rtpDesc.RTPHeaderExts = append(rtpDesc.RTPHeaderExts,
				RTPHeaderExt{ID: session.VideoHdrExtTransportCC, URI: RTPHdrExtTransportCCURI},
			)
		}

		if !k.isAudio {
			rtpDesc.SSRCGroups = append(rtpDesc.SSRCGroups, SSRCGroup{
				Semantics: SSRCSemanticsFid,
				Ssrcs:     []uint32{session.VideoSSRC, session.VideoRtxSSRC},
			})
		}

		transport := IceUdpTransport{
			Pwd:        session.LocalPwd,
			Ufrag:      session.LocalUfrag,
			Candidates: localCandidates,
			Fingerprints: []FingerPrint{{
				HashType: "sha-256",
				Setup:    "active",
				Required: false,
				Data:     session.FingerprintStr,
			}},
		}

		accept.Contents = append(accept.Contents, Content{
			Name:            mediaName(k.isAudio),
			Senders:         SendersBoth,
			IsFromInitiator: false,
			Descriptions:    []RTPDescription{rtpDesc},
			Transports:      []IceUdpTransport{transport},
		})
	}

	accept.Group = &Group{Semantics: GroupSemanticsBundle, Contents: []string{"audio", "video"}}
	return accept, nil
}

func mediaName(isAudio bool) string {
	if isAudio {
		return "audio"
	}
	return "video"
}
